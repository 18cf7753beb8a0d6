package calculator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedremit/internal/member"
	"fedremit/internal/organization"
	"fedremit/internal/remittance"
	"fedremit/internal/standing"
)

type countingMetrics struct {
	produced int
	saved    int
}

func (m *countingMetrics) CalculationProduced() { m.produced++ }
func (m *countingMetrics) RemittanceSaved()     { m.saved++ }

type CalculatorSuite struct {
	suite.Suite
	ctx     context.Context
	orgs    *organization.MemoryStore
	members *member.MemoryStore
	remits  *remittance.MemoryStore
	metrics *countingMetrics
	calc    *Calculator
	now     time.Time
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func (s *CalculatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.orgs = organization.NewMemory()
	s.members = member.NewMemory()
	s.remits = remittance.NewMemory()
	s.metrics = &countingMetrics{}
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	evaluator := standing.NewEvaluator(s.members).WithClock(func() time.Time { return s.now })
	s.calc = New(s.orgs, evaluator, s.remits, slog.New(slog.NewTextHandler(io.Discard, nil)), s.metrics).
		WithClock(func() time.Time { return s.now })
}

func (s *CalculatorSuite) newOrg(parent *uuid.UUID, rate float64) *organization.Organization {
	org := &organization.Organization{
		ID:       uuid.New(),
		Name:     "Local 100",
		ParentID: parent,
		Status:   organization.StatusActive,
		Config:   organization.Config{PerCapitaRate: rate},
	}
	s.Require().NoError(s.orgs.Save(s.ctx, org))
	return org
}

func (s *CalculatorSuite) addMembers(orgID uuid.UUID, active, lapsed int) {
	recent := s.now.AddDate(0, 0, -10)
	stale := s.now.AddDate(0, 0, -90)
	for i := 0; i < active; i++ {
		s.Require().NoError(s.members.Save(s.ctx, &member.Member{
			ID: uuid.New(), OrgID: orgID, Status: member.StatusActive, LastDuesPaidAt: &recent,
		}))
	}
	for i := 0; i < lapsed; i++ {
		s.Require().NoError(s.members.Save(s.ctx, &member.Member{
			ID: uuid.New(), OrgID: orgID, Status: member.StatusActive, LastDuesPaidAt: &stale,
		}))
	}
}

func (s *CalculatorSuite) TestCalculate() {
	s.Run("amount is remittable members times rate", func() {
		parent := s.newOrg(nil, 0)
		org := s.newOrg(&parent.ID, 2.50)
		s.addMembers(org.ID, 100, 20)

		calc, err := s.calc.Calculate(s.ctx, org.ID, 6, 2025)
		s.Require().NoError(err)
		s.True(calc.Applicable)
		s.Equal(120, calc.Remittance.TotalMembers)
		s.Equal(100, calc.Remittance.RemittableMembers)
		s.InDelta(250.00, calc.Remittance.TotalAmount, 0.001)
		s.Equal(remittance.StatusDraft, calc.Remittance.ApprovalStatus)
		s.Equal(remittance.PaymentPending, calc.Remittance.PaymentStatus)
	})

	s.Run("due date falls on configured day inside the period month", func() {
		parent := s.newOrg(nil, 0)
		org := s.newOrg(&parent.ID, 2.50)

		calc, err := s.calc.Calculate(s.ctx, org.ID, 6, 2025)
		s.Require().NoError(err)
		s.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), calc.Remittance.DueDate)
	})

	s.Run("no parent means not applicable, not an error", func() {
		org := s.newOrg(nil, 2.50)

		calc, err := s.calc.Calculate(s.ctx, org.ID, 6, 2025)
		s.Require().NoError(err)
		s.False(calc.Applicable)
		s.Equal("no parent organization", calc.Reason)
	})

	s.Run("zero rate means not applicable", func() {
		parent := s.newOrg(nil, 0)
		org := s.newOrg(&parent.ID, 0)

		calc, err := s.calc.Calculate(s.ctx, org.ID, 6, 2025)
		s.Require().NoError(err)
		s.False(calc.Applicable)
	})

	s.Run("rejects out-of-range month", func() {
		parent := s.newOrg(nil, 0)
		org := s.newOrg(&parent.ID, 2.50)

		_, err := s.calc.Calculate(s.ctx, org.ID, 13, 2025)
		s.Require().Error(err)
	})

	s.Run("fractional cents round to two decimals", func() {
		parent := s.newOrg(nil, 0)
		org := s.newOrg(&parent.ID, 1.333)
		s.addMembers(org.ID, 3, 0)

		calc, err := s.calc.Calculate(s.ctx, org.ID, 6, 2025)
		s.Require().NoError(err)
		s.InDelta(4.00, calc.Remittance.TotalAmount, 0.001) // 3.999 rounds up
	})
}

func (s *CalculatorSuite) TestSaveIdempotence() {
	parent := s.newOrg(nil, 0)
	org := s.newOrg(&parent.ID, 2.50)
	s.addMembers(org.ID, 50, 0)

	calcs, err := s.calc.CalculateAll(s.ctx, 6, 2025)
	s.Require().NoError(err)
	s.Require().Len(calcs, 1)

	first := s.calc.Save(s.ctx, calcs)
	s.Equal(1, first.Saved)

	// Rerun with more members: same period row is refreshed, not duplicated.
	s.addMembers(org.ID, 10, 0)
	calcs, err = s.calc.CalculateAll(s.ctx, 6, 2025)
	s.Require().NoError(err)
	second := s.calc.Save(s.ctx, calcs)
	s.Equal(1, second.Saved)

	row, err := s.remits.GetByPeriod(s.ctx, org.ID, 6, 2025)
	s.Require().NoError(err)
	s.Equal(60, row.RemittableMembers)
	s.InDelta(150.00, row.TotalAmount, 0.001)

	all, err := s.remits.ListByYear(s.ctx, 2025)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *CalculatorSuite) TestCalculateAllSkipsInapplicable() {
	parent := s.newOrg(nil, 0)
	s.newOrg(&parent.ID, 2.50) // applicable
	s.newOrg(nil, 2.50)        // no parent
	s.newOrg(&parent.ID, 0)    // no rate

	calcs, err := s.calc.CalculateAll(s.ctx, 6, 2025)
	s.Require().NoError(err)
	s.Len(calcs, 1)
}

func (s *CalculatorSuite) TestMarkOverdue() {
	parent := s.newOrg(nil, 0)
	org := s.newOrg(&parent.ID, 2.50)

	pastDue := &remittance.Remittance{
		FromOrgID: org.ID, ToOrgID: parent.ID, Month: 4, Year: 2025,
		TotalAmount: 100, DueDate: time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		ApprovalStatus: remittance.StatusDraft, PaymentStatus: remittance.PaymentPending,
	}
	insideGrace := &remittance.Remittance{
		FromOrgID: org.ID, ToOrgID: parent.ID, Month: 5, Year: 2025,
		TotalAmount: 100, DueDate: time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC),
		ApprovalStatus: remittance.StatusDraft, PaymentStatus: remittance.PaymentPending,
	}
	s.Require().NoError(s.remits.Upsert(s.ctx, pastDue))
	s.Require().NoError(s.remits.Upsert(s.ctx, insideGrace))

	n, err := s.calc.MarkOverdue(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	row, err := s.remits.GetByPeriod(s.ctx, org.ID, 4, 2025)
	s.Require().NoError(err)
	s.Equal(remittance.PaymentOverdue, row.PaymentStatus)

	row, err = s.remits.GetByPeriod(s.ctx, org.ID, 5, 2025)
	s.Require().NoError(err)
	s.Equal(remittance.PaymentPending, row.PaymentStatus)
}

func (s *CalculatorSuite) TestMetricsCount() {
	parent := s.newOrg(nil, 0)
	org := s.newOrg(&parent.ID, 2.50)
	s.addMembers(org.ID, 5, 0)

	calcs, err := s.calc.CalculateAll(s.ctx, 6, 2025)
	s.Require().NoError(err)
	s.calc.Save(s.ctx, calcs)

	s.Equal(1, s.metrics.produced)
	s.Equal(1, s.metrics.saved)
}
