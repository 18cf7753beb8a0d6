package remittance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fedremit/pkg/platform/sentinel"
)

type periodKey struct {
	from  uuid.UUID
	to    uuid.UUID
	month int
	year  int
}

// MemoryStore is the mutex-guarded map implementation used by unit tests and
// local development. The byPeriod index enforces the composite uniqueness
// key the same way the PostgreSQL unique constraint does.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[uuid.UUID]*Remittance
	byPeriod map[periodKey]uuid.UUID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[uuid.UUID]*Remittance),
		byPeriod: make(map[periodKey]uuid.UUID),
	}
}

func keyOf(r *Remittance) periodKey {
	return periodKey{from: r.FromOrgID, to: r.ToOrgID, month: r.Month, year: r.Year}
}

func (s *MemoryStore) Upsert(_ context.Context, r *Remittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := keyOf(r)
	if existingID, ok := s.byPeriod[key]; ok {
		existing := s.rows[existingID]
		// Refresh computed figures; workflow state belongs to the approval
		// engine and survives recalculation.
		existing.TotalMembers = r.TotalMembers
		existing.RemittableMembers = r.RemittableMembers
		existing.PerCapitaRate = r.PerCapitaRate
		existing.TotalAmount = r.TotalAmount
		existing.DueDate = r.DueDate
		existing.AccountCode = r.AccountCode
		existing.UpdatedAt = now
		*r = *existing
		return nil
	}

	cp := *r
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.ApprovalStatus == "" {
		cp.ApprovalStatus = StatusDraft
	}
	if cp.PaymentStatus == "" {
		cp.PaymentStatus = PaymentPending
	}
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.rows[cp.ID] = &cp
	s.byPeriod[key] = cp.ID
	*r = cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) GetByPeriod(_ context.Context, fromOrg uuid.UUID, month, year int) (*Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key, id := range s.byPeriod {
		if key.from == fromOrg && key.month == month && key.year == year {
			cp := *s.rows[id]
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) UpdateApprovalStatus(_ context.Context, id uuid.UUID, from, to ApprovalStatus, update TransitionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if r.ApprovalStatus != from {
		return sentinel.ErrInvalidState
	}
	r.ApprovalStatus = to
	if update.SubmittedAt != nil {
		t := *update.SubmittedAt
		r.SubmittedAt = &t
	}
	if update.PaidAt != nil {
		t := *update.PaidAt
		r.PaidAt = &t
	}
	if update.RejectionReason != nil {
		r.RejectionReason = *update.RejectionReason
	}
	if update.PaymentStatus != nil {
		r.PaymentStatus = *update.PaymentStatus
	}
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkOverdue(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.rows {
		if r.PaymentStatus == PaymentPending && r.PaidAt == nil && r.DueDate.Before(cutoff) {
			r.PaymentStatus = PaymentOverdue
			r.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListUnpaid(_ context.Context) ([]*Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Remittance
	for _, r := range s.rows {
		if r.PaidAt == nil && r.ApprovalStatus != StatusRejected {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortByDueDate(out)
	return out, nil
}

func (s *MemoryStore) ListByYear(_ context.Context, year int) ([]*Remittance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Remittance
	for _, r := range s.rows {
		if r.Year == year {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortByDueDate(out)
	return out, nil
}

func sortByDueDate(rows []*Remittance) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].DueDate.Before(rows[j].DueDate) })
}
