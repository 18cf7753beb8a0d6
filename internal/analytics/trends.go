package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// YearSummary is one year's aggregate with its deltas from the prior year.
// Each measure carries both the absolute change and the percentage change;
// all deltas are zero for the first year in the range.
type YearSummary struct {
	Year           int     `json:"year"`
	Total          int     `json:"total"`
	TotalAmount    float64 `json:"total_amount"`
	ComplianceRate float64 `json:"compliance_rate"` // percent
	Organizations  int     `json:"organizations"`

	TotalDelta         int     `json:"total_delta"`
	TotalPct           float64 `json:"total_pct"`
	AmountDelta        float64 `json:"amount_delta"`
	AmountPct          float64 `json:"amount_pct"`
	ComplianceDelta    float64 `json:"compliance_delta"` // percentage points
	CompliancePct      float64 `json:"compliance_pct"`
	OrganizationsDelta int     `json:"organizations_delta"`
	OrganizationsPct   float64 `json:"organizations_pct"`
}

// Forecast is the least-squares projection for the year after the
// observed range.
type Forecast struct {
	Year           int     `json:"year"`
	TotalAmount    float64 `json:"total_amount"`
	ComplianceRate float64 `json:"compliance_rate"` // percent, clamped to [0,100]
	Confidence     float64 `json:"confidence"`      // percent, scales with sample size
}

// TrendReport covers the requested years in ascending order plus a
// next-year forecast when at least two years carry data.
type TrendReport struct {
	Years    []YearSummary `json:"years"`
	Forecast *Forecast     `json:"forecast,omitempty"`
}

// AnalyzeMultiYearTrends aggregates each requested year, computes
// year-over-year deltas, and projects the next year with a least-squares
// line over the year index.
func (e *Engine) AnalyzeMultiYearTrends(ctx context.Context, years []int) (*TrendReport, error) {
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)

	report := &TrendReport{}
	for _, year := range sorted {
		summary, err := e.summarizeYear(ctx, year)
		if err != nil {
			return nil, err
		}
		if n := len(report.Years); n > 0 {
			prev := report.Years[n-1]
			summary.TotalDelta = summary.Total - prev.Total
			summary.TotalPct = pctChange(float64(summary.Total), float64(prev.Total))
			summary.AmountDelta = summary.TotalAmount - prev.TotalAmount
			summary.AmountPct = pctChange(summary.TotalAmount, prev.TotalAmount)
			summary.ComplianceDelta = summary.ComplianceRate - prev.ComplianceRate
			summary.CompliancePct = pctChange(summary.ComplianceRate, prev.ComplianceRate)
			summary.OrganizationsDelta = summary.Organizations - prev.Organizations
			summary.OrganizationsPct = pctChange(float64(summary.Organizations), float64(prev.Organizations))
		}
		report.Years = append(report.Years, summary)
	}

	if len(report.Years) >= 2 {
		report.Forecast = forecastNext(report.Years)
	}
	return report, nil
}

func (e *Engine) summarizeYear(ctx context.Context, year int) (YearSummary, error) {
	rows, err := e.remits.ListByYear(ctx, year)
	if err != nil {
		return YearSummary{}, fmt.Errorf("list remittances for %d: %w", year, err)
	}
	summary := YearSummary{Year: year}
	orgs := make(map[uuid.UUID]struct{})
	onTime := 0
	for _, r := range rows {
		summary.Total++
		summary.TotalAmount += r.TotalAmount
		orgs[r.FromOrgID] = struct{}{}
		if paidOnTime(r) {
			onTime++
		}
	}
	summary.Organizations = len(orgs)
	if summary.Total > 0 {
		summary.ComplianceRate = 100 * float64(onTime) / float64(summary.Total)
	}
	return summary, nil
}

// forecastNext fits amount and compliance series against their index
// position, so irregular year gaps don't skew the slope. Confidence grows
// with the number of observed years.
func forecastNext(years []YearSummary) *Forecast {
	amounts := make([]float64, len(years))
	rates := make([]float64, len(years))
	for i, y := range years {
		amounts[i] = y.TotalAmount
		rates[i] = y.ComplianceRate
	}
	return &Forecast{
		Year:           years[len(years)-1].Year + 1,
		TotalAmount:    olsNext(amounts),
		ComplianceRate: clamp(olsNext(rates), 0, 100),
		Confidence:     clamp(20*float64(len(years)), 0, 100),
	}
}

// olsNext evaluates the least-squares line through (i, values[i]) at the
// next index.
func olsNext(values []float64) float64 {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return sumY / n
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	return intercept + slope*n
}

// pctChange is the relative change in percent; a zero prior year yields
// zero rather than a division blow-up.
func pctChange(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return 100 * (current - prior) / prior
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
