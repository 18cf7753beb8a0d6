package remittance

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus is the workflow axis: draft → pending_<level>... →
// approved → paid, or rejected. Overdue tracking lives on PaymentStatus so
// the sign-off machine never loses its position when a deadline slips.
type ApprovalStatus string

const (
	StatusDraft    ApprovalStatus = "draft"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
	StatusPaid     ApprovalStatus = "paid"

	pendingPrefix = "pending_"
)

// PendingAt builds the pending status for a named approval level.
func PendingAt(level string) ApprovalStatus {
	return ApprovalStatus(pendingPrefix + level)
}

// IsPending reports whether the status is any pending_<level> stage.
func (s ApprovalStatus) IsPending() bool {
	return strings.HasPrefix(string(s), pendingPrefix)
}

// PendingLevel returns the level name for a pending status, or "" otherwise.
func (s ApprovalStatus) PendingLevel() string {
	if !s.IsPending() {
		return ""
	}
	return strings.TrimPrefix(string(s), pendingPrefix)
}

// PaymentStatus is the money axis, independent of sign-off progress.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// AmountTolerance is the highest accepted drift between the stored amount and
// remittable × rate, covering float rounding on recomputation.
const AmountTolerance = 0.01

// OverdueGraceDays is how long past the due date a pending remittance may sit
// before the daily sweep marks it overdue.
const OverdueGraceDays = 5

// Remittance is one period's per-capita obligation from a subordinate
// organization to its parent. Uniqueness is the composite
// (FromOrgID, ToOrgID, Month, Year) key; reruns upsert, never duplicate.
type Remittance struct {
	ID        uuid.UUID
	FromOrgID uuid.UUID
	ToOrgID   uuid.UUID
	Month     int
	Year      int

	TotalMembers      int
	RemittableMembers int
	PerCapitaRate     float64
	TotalAmount       float64

	DueDate     time.Time
	SubmittedAt *time.Time
	PaidAt      *time.Time

	ApprovalStatus  ApprovalStatus
	PaymentStatus   PaymentStatus
	RejectionReason string
	AccountCode     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AmountConsistent checks the core financial invariant.
func (r *Remittance) AmountConsistent() bool {
	expected := float64(r.RemittableMembers) * r.PerCapitaRate
	return math.Abs(r.TotalAmount-expected) <= AmountTolerance
}

// DaysOverdue returns whole days elapsed since the due date, negative when
// the due date is still ahead.
func (r *Remittance) DaysOverdue(now time.Time) int {
	return int(now.Sub(r.DueDate).Hours() / 24)
}
