package remittance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store abstracts remittance persistence. Upsert is keyed on the composite
// (from, to, month, year) uniqueness key; UpdateApprovalStatus is the
// optimistic-check primitive the workflow engine builds transitions on.
type Store interface {
	// Upsert inserts or replaces the row for the remittance's composite key,
	// preserving workflow fields when the row already exists.
	Upsert(ctx context.Context, r *Remittance) error
	Get(ctx context.Context, id uuid.UUID) (*Remittance, error)
	GetByPeriod(ctx context.Context, fromOrg uuid.UUID, month, year int) (*Remittance, error)
	// UpdateApprovalStatus atomically moves a remittance from one approval
	// status to another. Returns sentinel.ErrInvalidState when the current
	// status is not `from`, so two concurrent approvals cannot both win.
	UpdateApprovalStatus(ctx context.Context, id uuid.UUID, from, to ApprovalStatus, update TransitionUpdate) error
	// MarkOverdue flips payment status pending→overdue for unpaid rows whose
	// due date precedes the cutoff. Returns the number of rows transitioned.
	MarkOverdue(ctx context.Context, cutoff time.Time) (int, error)
	ListUnpaid(ctx context.Context) ([]*Remittance, error)
	ListByYear(ctx context.Context, year int) ([]*Remittance, error)
}

// TransitionUpdate carries the side fields a workflow transition sets along
// with the status flip. Nil pointers leave the column untouched.
type TransitionUpdate struct {
	SubmittedAt     *time.Time
	PaidAt          *time.Time
	RejectionReason *string
	PaymentStatus   *PaymentStatus
}
