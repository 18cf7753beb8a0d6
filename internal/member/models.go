package member

import (
	"time"

	"github.com/google/uuid"
)

// Status mirrors the organization lifecycle at member granularity.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// GoodStandingWindow is the rolling recency window for dues payments. A
// member whose last completed payment is older than this owes no per-capita.
const GoodStandingWindow = 60 * 24 * time.Hour

// Member is the minimal membership record the remittance core needs: it only
// cares about counts and dues recency, not the full people-management model.
type Member struct {
	ID             uuid.UUID
	OrgID          uuid.UUID
	Status         Status
	LastDuesPaidAt *time.Time
	CreatedAt      time.Time
}

// InGoodStanding reports whether the member's dues fall within the rolling
// window as of now.
func (m *Member) InGoodStanding(now time.Time) bool {
	if m.LastDuesPaidAt == nil {
		return false
	}
	return now.Sub(*m.LastDuesPaidAt) <= GoodStandingWindow
}
