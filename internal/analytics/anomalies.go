package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AnomalyType names the late behavior detected.
type AnomalyType string

const (
	AnomalyLateSubmission AnomalyType = "late_submission"
	AnomalyLatePayment    AnomalyType = "late_payment"
)

// Severity orders anomalies for triage.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Delay thresholds in days before a submission or payment counts as late.
const (
	submissionDelayThreshold = 7
	paymentDelayThreshold    = 14
)

// Anomaly is one flagged remittance behavior.
type Anomaly struct {
	RemittanceID uuid.UUID   `json:"remittance_id"`
	OrgID        uuid.UUID   `json:"org_id"`
	Type         AnomalyType `json:"type"`
	Severity     Severity    `json:"severity"`
	DelayDays    int         `json:"delay_days"`
	Month        int         `json:"month"`
	Year         int         `json:"year"`
}

// DetectComplianceAnomalies scans the year for submissions later than 7
// days and payments later than 14 days past due, graded by how far past
// the threshold the delay runs, worst first.
func (e *Engine) DetectComplianceAnomalies(ctx context.Context, year int) ([]Anomaly, error) {
	rows, err := e.remits.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list remittances for %d: %w", year, err)
	}

	var anomalies []Anomaly
	for _, r := range rows {
		if delay := delayDays(r.DueDate, r.SubmittedAt); delay > submissionDelayThreshold {
			anomalies = append(anomalies, Anomaly{
				RemittanceID: r.ID,
				OrgID:        r.FromOrgID,
				Type:         AnomalyLateSubmission,
				Severity:     gradeDelay(delay, submissionDelayThreshold),
				DelayDays:    delay,
				Month:        r.Month,
				Year:         r.Year,
			})
		}
		if delay := delayDays(r.DueDate, r.PaidAt); delay > paymentDelayThreshold {
			anomalies = append(anomalies, Anomaly{
				RemittanceID: r.ID,
				OrgID:        r.FromOrgID,
				Type:         AnomalyLatePayment,
				Severity:     gradeDelay(delay, paymentDelayThreshold),
				DelayDays:    delay,
				Month:        r.Month,
				Year:         r.Year,
			})
		}
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].Severity != anomalies[j].Severity {
			return severityRank(anomalies[i].Severity) > severityRank(anomalies[j].Severity)
		}
		return anomalies[i].DelayDays > anomalies[j].DelayDays
	})
	return anomalies, nil
}

// gradeDelay buckets by multiples of the threshold: past four times the
// threshold is critical, past double is high, anything else flagged is
// medium.
func gradeDelay(delay, threshold int) Severity {
	switch {
	case delay > 4*threshold:
		return SeverityCritical
	case delay > 2*threshold:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityHigh:
		return 1
	default:
		return 0
	}
}

func delayDays(due time.Time, at *time.Time) int {
	if at == nil {
		return 0
	}
	return daysBetween(due, *at)
}
