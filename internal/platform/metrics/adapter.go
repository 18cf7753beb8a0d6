package metrics

// The domain services declare narrow metric interfaces; Metrics satisfies
// all of them so main wires one value everywhere.

func (m *Metrics) CalculationProduced() {
	m.RemittancesCalculated.Inc()
}

func (m *Metrics) RemittanceSaved() {
	m.RemittancesSaved.Inc()
}

func (m *Metrics) Transition(action, outcome string) {
	m.ApprovalTransitions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) SyncOutcome(outcome string) {
	m.RegistrySyncs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WebhookOutcome(outcome string) {
	m.WebhooksProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Delivery(channel, outcome string) {
	m.NotificationsSent.WithLabelValues(channel, outcome).Inc()
}

// RegistryFetchObserved records one external fetch latency in seconds.
func (m *Metrics) RegistryFetchObserved(seconds float64) {
	m.RegistryFetchSeconds.Observe(seconds)
}
