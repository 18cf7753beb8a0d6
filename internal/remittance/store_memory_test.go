package remittance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedremit/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
}

func (s *MemoryStoreSuite) newRow(month int) *Remittance {
	return &Remittance{
		FromOrgID: uuid.New(), ToOrgID: uuid.New(), Month: month, Year: 2025,
		TotalMembers: 10, RemittableMembers: 10, PerCapitaRate: 2, TotalAmount: 20,
		DueDate: time.Date(2025, time.Month(month), 15, 0, 0, 0, 0, time.UTC),
	}
}

func (s *MemoryStoreSuite) TestUpsert() {
	s.Run("assigns an id and defaults statuses", func() {
		r := s.newRow(1)
		s.Require().NoError(s.store.Upsert(s.ctx, r))
		s.NotEqual(uuid.Nil, r.ID)
		s.Equal(StatusDraft, r.ApprovalStatus)
		s.Equal(PaymentPending, r.PaymentStatus)
	})

	s.Run("same period refreshes figures but keeps workflow state", func() {
		r := s.newRow(2)
		s.Require().NoError(s.store.Upsert(s.ctx, r))
		s.Require().NoError(s.store.UpdateApprovalStatus(s.ctx, r.ID,
			StatusDraft, PendingAt("local"), TransitionUpdate{}))

		rerun := *s.newRow(2)
		rerun.FromOrgID, rerun.ToOrgID = r.FromOrgID, r.ToOrgID
		rerun.TotalAmount = 40
		s.Require().NoError(s.store.Upsert(s.ctx, &rerun))

		row, err := s.store.Get(s.ctx, r.ID)
		s.Require().NoError(err)
		s.InDelta(40, row.TotalAmount, 0.001)
		s.Equal(PendingAt("local"), row.ApprovalStatus)
	})
}

func (s *MemoryStoreSuite) TestUpdateApprovalStatus() {
	s.Run("moves only from the expected status", func() {
		r := s.newRow(3)
		s.Require().NoError(s.store.Upsert(s.ctx, r))

		err := s.store.UpdateApprovalStatus(s.ctx, r.ID,
			PendingAt("local"), PendingAt("regional"), TransitionUpdate{})
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		row, err := s.store.Get(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(StatusDraft, row.ApprovalStatus)
	})

	s.Run("missing row reports not found", func() {
		err := s.store.UpdateApprovalStatus(s.ctx, uuid.New(),
			StatusDraft, PendingAt("local"), TransitionUpdate{})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("applies side fields from the update", func() {
		r := s.newRow(4)
		s.Require().NoError(s.store.Upsert(s.ctx, r))

		paidAt := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
		paid := PaymentPaid
		s.Require().NoError(s.store.UpdateApprovalStatus(s.ctx, r.ID,
			StatusDraft, StatusPaid, TransitionUpdate{PaidAt: &paidAt, PaymentStatus: &paid}))

		row, err := s.store.Get(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Require().NotNil(row.PaidAt)
		s.Equal(paidAt, *row.PaidAt)
		s.Equal(PaymentPaid, row.PaymentStatus)
	})
}

func (s *MemoryStoreSuite) TestMarkOverdue() {
	cutoff := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	pastDue := s.newRow(5)
	pastDue.DueDate = cutoff.AddDate(0, 0, -1)
	s.Require().NoError(s.store.Upsert(s.ctx, pastDue))

	paid := s.newRow(6)
	paid.DueDate = cutoff.AddDate(0, 0, -10)
	s.Require().NoError(s.store.Upsert(s.ctx, paid))
	paidAt := cutoff
	paymentPaid := PaymentPaid
	s.Require().NoError(s.store.UpdateApprovalStatus(s.ctx, paid.ID,
		StatusDraft, StatusPaid, TransitionUpdate{PaidAt: &paidAt, PaymentStatus: &paymentPaid}))

	n, err := s.store.MarkOverdue(s.ctx, cutoff)
	s.Require().NoError(err)
	s.Equal(1, n)

	row, err := s.store.Get(s.ctx, paid.ID)
	s.Require().NoError(err)
	s.Equal(PaymentPaid, row.PaymentStatus)
}
