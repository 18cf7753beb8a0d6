package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedremit/internal/organization"
	"fedremit/internal/remittance"
)

type AnalyticsSuite struct {
	suite.Suite
	ctx    context.Context
	orgs   *organization.MemoryStore
	remits *remittance.MemoryStore
	engine *Engine
}

func TestAnalyticsSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsSuite))
}

func (s *AnalyticsSuite) SetupTest() {
	s.ctx = context.Background()
	s.orgs = organization.NewMemory()
	s.remits = remittance.NewMemory()
	s.engine = NewEngine(s.remits, s.orgs)
}

func (s *AnalyticsSuite) newOrg(name string) *organization.Organization {
	org := &organization.Organization{ID: uuid.New(), Name: name, Status: organization.StatusActive}
	s.Require().NoError(s.orgs.Save(s.ctx, org))
	return org
}

// seed creates one remittance; paidDelay < 0 means unpaid, otherwise the
// payment lands that many days after the due date (negative-zero means on
// the due date itself).
func (s *AnalyticsSuite) seed(org *organization.Organization, month, year, paidDelay int, overdue bool) *remittance.Remittance {
	due := time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC)
	r := &remittance.Remittance{
		FromOrgID: org.ID, ToOrgID: uuid.New(), Month: month, Year: year,
		TotalMembers: 100, RemittableMembers: 100, PerCapitaRate: 2.50, TotalAmount: 250,
		DueDate:        due,
		ApprovalStatus: remittance.StatusPaid,
		PaymentStatus:  remittance.PaymentPaid,
	}
	if paidDelay >= 0 {
		paidAt := due.AddDate(0, 0, paidDelay)
		r.PaidAt = &paidAt
		submitted := due.AddDate(0, 0, paidDelay-1)
		r.SubmittedAt = &submitted
	} else {
		r.ApprovalStatus = remittance.StatusDraft
		r.PaymentStatus = remittance.PaymentPending
	}
	if overdue {
		r.PaymentStatus = remittance.PaymentOverdue
	}
	s.Require().NoError(s.remits.Upsert(s.ctx, r))
	return r
}

func (s *AnalyticsSuite) TestAnnualReport() {
	s.Run("compliance rate counts on-time payments only", func() {
		org := s.newOrg("Local A")
		s.seed(org, 1, 2025, 0, false)  // on time
		s.seed(org, 2, 2025, 10, false) // late
		s.seed(org, 3, 2025, -1, false) // unpaid

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2025)
		s.Require().NoError(err)
		s.Equal(3, report.Total)
		s.Equal(1, report.PaidOnTime)
		s.InDelta(33.33, report.ComplianceRate, 0.1)
		s.InDelta(750, report.TotalAmount, 0.001)
	})

	s.Run("average delay covers late payments only", func() {
		org := s.newOrg("Local B")
		s.seed(org, 1, 2024, 0, false)  // on time, excluded
		s.seed(org, 2, 2024, 6, false)  // 6 days late
		s.seed(org, 3, 2024, 12, false) // 12 days late

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2024)
		s.Require().NoError(err)
		s.InDelta(9.0, report.AverageDelay, 0.001)
	})

	s.Run("empty year yields a zeroed report", func() {
		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 1999)
		s.Require().NoError(err)
		s.Zero(report.Total)
		s.Zero(report.ComplianceRate)
	})
}

func (s *AnalyticsSuite) TestRiskTiers() {
	s.Run("clean record is low risk", func() {
		org := s.newOrg("Clean")
		s.seed(org, 1, 2023, 0, false)
		s.seed(org, 2, 2023, 0, false)

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2023)
		s.Require().NoError(err)
		s.Require().Len(report.Organizations, 1)
		s.Equal(RiskLow, report.Organizations[0].RiskTier)
	})

	s.Run("one overdue is medium risk", func() {
		org := s.newOrg("Wobbly")
		s.seed(org, 1, 2022, 0, false)
		s.seed(org, 2, 2022, 0, false)
		s.seed(org, 3, 2022, 0, false)
		s.seed(org, 4, 2022, 0, false)
		s.seed(org, 5, 2022, -1, true)

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2022)
		s.Require().NoError(err)
		s.Require().Len(report.Organizations, 1)
		s.Equal(RiskMedium, report.Organizations[0].RiskTier)
	})

	s.Run("three overdues are high risk", func() {
		org := s.newOrg("Troubled")
		for m := 1; m <= 3; m++ {
			s.seed(org, m, 2021, -1, true)
		}

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2021)
		s.Require().NoError(err)
		s.Require().Len(report.Organizations, 1)
		s.Equal(RiskHigh, report.Organizations[0].RiskTier)
	})
}

func (s *AnalyticsSuite) TestTrendHysteresis() {
	s.Run("small movement reads stable", func() {
		// 2024: 1 of 2 on time (50%). 2025: 1 of 2 on time (50%).
		org := s.newOrg("Steady")
		s.seed(org, 1, 2024, 0, false)
		s.seed(org, 2, 2024, 10, false)
		s.seed(org, 1, 2025, 0, false)
		s.seed(org, 2, 2025, 10, false)

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2025)
		s.Require().NoError(err)
		s.Equal(TrendStable, report.Organizations[0].Trend)
	})

	s.Run("movement past the band flips the trend", func() {
		// 2024: 0%. 2025: 100%.
		org := s.newOrg("Riser")
		s.seed(org, 1, 2024, 10, false)
		s.seed(org, 1, 2025, 0, false)

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2025)
		s.Require().NoError(err)
		s.Equal(TrendImproving, report.Organizations[0].Trend)
	})

	s.Run("no prior year reads stable", func() {
		org := s.newOrg("Newcomer")
		s.seed(org, 1, 2025, 0, false)

		report, err := s.engine.GenerateAnnualComplianceReport(s.ctx, 2025)
		s.Require().NoError(err)
		for _, perf := range report.Organizations {
			if perf.OrgID == org.ID {
				s.Equal(TrendStable, perf.Trend)
			}
		}
	})
}

func (s *AnalyticsSuite) TestAnomalies() {
	org := s.newOrg("Local C")

	// 8 days late submission (past the 7-day threshold), payment on time.
	due := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	lateSubmit := due.AddDate(0, 0, 8)
	onTimePay := due
	s.Require().NoError(s.remits.Upsert(s.ctx, &remittance.Remittance{
		FromOrgID: org.ID, ToOrgID: uuid.New(), Month: 1, Year: 2020,
		TotalMembers: 100, RemittableMembers: 100, PerCapitaRate: 2.50, TotalAmount: 250,
		DueDate: due, SubmittedAt: &lateSubmit, PaidAt: &onTimePay,
		ApprovalStatus: remittance.StatusPaid, PaymentStatus: remittance.PaymentPaid,
	}))

	// 60 days late payment (past 4x the 14-day threshold → critical).
	s.seed(org, 2, 2020, 60, false)

	// On time, no anomaly.
	s.seed(org, 3, 2020, 0, false)

	anomalies, err := s.engine.DetectComplianceAnomalies(s.ctx, 2020)
	s.Require().NoError(err)
	s.Require().Len(anomalies, 3) // late submission + late payment + its late submission

	// Critical first.
	s.Equal(SeverityCritical, anomalies[0].Severity)
	s.Equal(AnomalyLatePayment, anomalies[0].Type)
	s.Equal(60, anomalies[0].DelayDays)
}

func (s *AnalyticsSuite) TestGradeDelay() {
	tests := []struct {
		delay     int
		threshold int
		want      Severity
	}{
		{8, 7, SeverityMedium},
		{14, 7, SeverityMedium},
		{15, 7, SeverityHigh},
		{28, 7, SeverityHigh},
		{29, 7, SeverityCritical},
		{15, 14, SeverityMedium},
		{57, 14, SeverityCritical},
	}
	for _, tt := range tests {
		s.Equal(tt.want, gradeDelay(tt.delay, tt.threshold), "delay=%d threshold=%d", tt.delay, tt.threshold)
	}
}

func (s *AnalyticsSuite) TestMultiYearTrends() {
	org := s.newOrg("Local D")
	// 2023: 1 remittance 250. 2024: 2 x 250. 2025: 3 x 250.
	s.seed(org, 1, 2023, 0, false)
	for m := 1; m <= 2; m++ {
		s.seed(org, m, 2024, 0, false)
	}
	for m := 1; m <= 3; m++ {
		s.seed(org, m, 2025, 0, false)
	}

	report, err := s.engine.AnalyzeMultiYearTrends(s.ctx, []int{2025, 2023, 2024})
	s.Require().NoError(err)
	s.Require().Len(report.Years, 3)

	// Ascending order regardless of input order.
	s.Equal(2023, report.Years[0].Year)
	s.Equal(2025, report.Years[2].Year)
	s.InDelta(250, report.Years[1].AmountDelta, 0.001)
	s.InDelta(100, report.Years[1].AmountPct, 0.001)
	s.InDelta(50, report.Years[2].AmountPct, 0.001)
	s.Equal(1, report.Years[1].TotalDelta)
	s.InDelta(100, report.Years[1].TotalPct, 0.001)

	// Linear growth projects the next step exactly.
	s.Require().NotNil(report.Forecast)
	s.Equal(2026, report.Forecast.Year)
	s.InDelta(1000, report.Forecast.TotalAmount, 0.001)
	s.InDelta(100, report.Forecast.ComplianceRate, 0.001)
	s.InDelta(60, report.Forecast.Confidence, 0.001)
}

func (s *AnalyticsSuite) TestYearOverYearDeltas() {
	s.Run("every measure carries absolute and percentage deltas", func() {
		orgA := s.newOrg("Local F")
		orgB := s.newOrg("Local G")
		s.seed(orgA, 1, 2024, 0, false)
		s.seed(orgA, 1, 2025, 0, false)
		s.seed(orgB, 2, 2025, 0, false)

		report, err := s.engine.AnalyzeMultiYearTrends(s.ctx, []int{2024, 2025})
		s.Require().NoError(err)
		s.Require().Len(report.Years, 2)

		first := report.Years[0]
		s.Zero(first.TotalDelta)
		s.Zero(first.AmountPct)
		s.Zero(first.OrganizationsDelta)

		second := report.Years[1]
		s.Equal(1, second.TotalDelta)
		s.InDelta(100, second.TotalPct, 0.001)
		s.InDelta(250, second.AmountDelta, 0.001)
		s.InDelta(100, second.AmountPct, 0.001)
		s.InDelta(0, second.ComplianceDelta, 0.001)
		s.InDelta(0, second.CompliancePct, 0.001)
		s.Equal(1, second.OrganizationsDelta)
		s.InDelta(100, second.OrganizationsPct, 0.001)
	})

	s.Run("an empty prior year yields absolute deltas but no percentages", func() {
		org := s.newOrg("Local H")
		s.seed(org, 1, 2021, 0, false)

		report, err := s.engine.AnalyzeMultiYearTrends(s.ctx, []int{2020, 2021})
		s.Require().NoError(err)
		s.Require().Len(report.Years, 2)

		second := report.Years[1]
		s.Equal(1, second.TotalDelta)
		s.InDelta(250, second.AmountDelta, 0.001)
		s.Zero(second.TotalPct)
		s.Zero(second.AmountPct)
	})
}

func (s *AnalyticsSuite) TestForecastNeedsTwoYears() {
	org := s.newOrg("Local E")
	s.seed(org, 1, 2025, 0, false)

	report, err := s.engine.AnalyzeMultiYearTrends(s.ctx, []int{2025})
	s.Require().NoError(err)
	s.Nil(report.Forecast)
}

func (s *AnalyticsSuite) TestOLSNext() {
	s.Run("constant series projects the constant", func() {
		s.InDelta(5, olsNext([]float64{5, 5, 5}), 0.001)
	})
	s.Run("linear series continues the line", func() {
		s.InDelta(40, olsNext([]float64{10, 20, 30}), 0.001)
	})
}
