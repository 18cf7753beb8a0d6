package review

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a review item through human triage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDismissed Status = "dismissed"
)

// Item is one field-level registry conflict awaiting a human decision.
// Conflict policy marks some fields manual_review; instead of silently
// dropping them, sync queues an item here.
type Item struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	Field       string
	LocalValue  string
	RemoteValue string
	Status      Status
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	ResolvedBy  *uuid.UUID
}
