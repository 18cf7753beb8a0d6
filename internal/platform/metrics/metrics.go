package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the remittance core.
type Metrics struct {
	RemittancesCalculated prometheus.Counter
	RemittancesSaved      prometheus.Counter
	ApprovalTransitions   *prometheus.CounterVec
	WebhooksProcessed     *prometheus.CounterVec
	RegistrySyncs         *prometheus.CounterVec
	NotificationsSent     *prometheus.CounterVec
	RegistryFetchSeconds  prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RemittancesCalculated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fedremit_remittances_calculated_total",
			Help: "Total per-capita calculations produced by the calculator",
		}),
		RemittancesSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fedremit_remittances_saved_total",
			Help: "Total remittance rows upserted",
		}),
		ApprovalTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fedremit_approval_transitions_total",
			Help: "Approval workflow transitions by action and outcome",
		}, []string{"action", "outcome"}),
		WebhooksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fedremit_webhooks_total",
			Help: "Inbound registry webhooks by outcome",
		}, []string{"outcome"}),
		RegistrySyncs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fedremit_registry_syncs_total",
			Help: "Registry sync attempts by outcome",
		}, []string{"outcome"}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fedremit_notifications_total",
			Help: "Notification delivery attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		RegistryFetchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fedremit_registry_fetch_seconds",
			Help:    "Latency of external registry fetches",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
