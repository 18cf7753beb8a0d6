// Package analytics aggregates remittance history into compliance
// reporting, anomaly detection, and multi-year trend forecasts.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fedremit/internal/organization"
	"fedremit/internal/remittance"
)

// RiskTier buckets an organization's compliance posture.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Trend classifies the year-over-year direction of an organization's
// compliance rate.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// trendHysteresis is the percentage-point band a compliance rate must move
// beyond before the trend flips, so ordinary noise reads as stable.
const trendHysteresis = 5.0

// OrgPerformance is one organization's scored year.
type OrgPerformance struct {
	OrgID          uuid.UUID `json:"org_id"`
	OrgName        string    `json:"org_name"`
	Total          int       `json:"total"`
	PaidOnTime     int       `json:"paid_on_time"`
	OverdueCount   int       `json:"overdue_count"`
	ComplianceRate float64   `json:"compliance_rate"` // percent
	RiskTier       RiskTier  `json:"risk_tier"`
	Trend          Trend     `json:"trend"`
}

// AnnualReport is the federation-wide compliance summary for one year.
type AnnualReport struct {
	Year           int              `json:"year"`
	Total          int              `json:"total"`
	TotalAmount    float64          `json:"total_amount"`
	PaidOnTime     int              `json:"paid_on_time"`
	ComplianceRate float64          `json:"compliance_rate"` // percent
	AverageDelay   float64          `json:"average_delay_days"`
	Organizations  []OrgPerformance `json:"organizations"`
}

// Engine computes compliance analytics from the remittance store.
type Engine struct {
	remits remittance.Store
	orgs   organization.Store
}

func NewEngine(remits remittance.Store, orgs organization.Store) *Engine {
	return &Engine{remits: remits, orgs: orgs}
}

// GenerateAnnualComplianceReport aggregates the year's remittances. The
// compliance rate counts on-time payments against the total; the average
// delay only averages non-negative (late) deltas so early payments don't
// mask lateness elsewhere.
func (e *Engine) GenerateAnnualComplianceReport(ctx context.Context, year int) (*AnnualReport, error) {
	rows, err := e.remits.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list remittances for %d: %w", year, err)
	}
	report := &AnnualReport{Year: year}

	var lateDays, lateCount int
	byOrg := make(map[uuid.UUID][]*remittance.Remittance)
	for _, r := range rows {
		report.Total++
		report.TotalAmount += r.TotalAmount
		if paidOnTime(r) {
			report.PaidOnTime++
		}
		if delay := paymentDelayDays(r); delay > 0 {
			lateDays += delay
			lateCount++
		}
		byOrg[r.FromOrgID] = append(byOrg[r.FromOrgID], r)
	}
	if report.Total > 0 {
		report.ComplianceRate = 100 * float64(report.PaidOnTime) / float64(report.Total)
	}
	if lateCount > 0 {
		report.AverageDelay = float64(lateDays) / float64(lateCount)
	}

	priorRates := e.complianceRatesByOrg(ctx, year-1)
	for orgID, orgRows := range byOrg {
		perf := scoreOrganization(orgID, orgRows)
		if org, err := e.orgs.Get(ctx, orgID); err == nil {
			perf.OrgName = org.Name
		}
		perf.Trend = classifyTrend(perf.ComplianceRate, priorRates[orgID])
		report.Organizations = append(report.Organizations, perf)
	}
	sort.Slice(report.Organizations, func(i, j int) bool {
		return report.Organizations[i].OrgName < report.Organizations[j].OrgName
	})
	return report, nil
}

func (e *Engine) complianceRatesByOrg(ctx context.Context, year int) map[uuid.UUID]*float64 {
	out := make(map[uuid.UUID]*float64)
	rows, err := e.remits.ListByYear(ctx, year)
	if err != nil {
		return out
	}
	totals := make(map[uuid.UUID]int)
	onTime := make(map[uuid.UUID]int)
	for _, r := range rows {
		totals[r.FromOrgID]++
		if paidOnTime(r) {
			onTime[r.FromOrgID]++
		}
	}
	for orgID, total := range totals {
		rate := 100 * float64(onTime[orgID]) / float64(total)
		out[orgID] = &rate
	}
	return out
}

// scoreOrganization buckets one organization's year into a risk tier from
// its overdue count and compliance rate.
func scoreOrganization(orgID uuid.UUID, rows []*remittance.Remittance) OrgPerformance {
	perf := OrgPerformance{OrgID: orgID}
	for _, r := range rows {
		perf.Total++
		if paidOnTime(r) {
			perf.PaidOnTime++
		}
		if r.PaymentStatus == remittance.PaymentOverdue {
			perf.OverdueCount++
		}
	}
	if perf.Total > 0 {
		perf.ComplianceRate = 100 * float64(perf.PaidOnTime) / float64(perf.Total)
	}

	switch {
	case perf.OverdueCount >= 3 || perf.ComplianceRate < 50:
		perf.RiskTier = RiskHigh
	case perf.OverdueCount >= 1 || perf.ComplianceRate < 80:
		perf.RiskTier = RiskMedium
	default:
		perf.RiskTier = RiskLow
	}
	return perf
}

// classifyTrend compares against the prior year inside the hysteresis band.
// No prior year reads as stable.
func classifyTrend(current float64, prior *float64) Trend {
	if prior == nil {
		return TrendStable
	}
	switch delta := current - *prior; {
	case delta > trendHysteresis:
		return TrendImproving
	case delta < -trendHysteresis:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func paidOnTime(r *remittance.Remittance) bool {
	return r.PaidAt != nil && !r.PaidAt.After(r.DueDate)
}

// paymentDelayDays is the late delta in whole days, zero or negative when
// unpaid or early.
func paymentDelayDays(r *remittance.Remittance) int {
	if r.PaidAt == nil {
		return 0
	}
	return daysBetween(r.DueDate, *r.PaidAt)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
