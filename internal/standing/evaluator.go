// Package standing derives per-organization membership eligibility counts.
// It is a pure read over the member store: no rows are written and an
// unknown organization simply has zero remitters.
package standing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fedremit/internal/member"
)

// Counts is the derived member-standing snapshot. It is computed on demand
// and never persisted.
type Counts struct {
	Total        int
	GoodStanding int
	Remittable   int
}

// Evaluator computes standing counts from the member store.
type Evaluator struct {
	members member.Store
	now     func() time.Time
}

func NewEvaluator(members member.Store) *Evaluator {
	return &Evaluator{members: members, now: time.Now}
}

// WithClock overrides the time source; tests pin the evaluation instant.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Evaluate returns the standing counts for one organization. An organization
// with no members (or one that does not exist) yields zero counts, not an
// error: absence of remitters is a valid state.
func (e *Evaluator) Evaluate(ctx context.Context, orgID uuid.UUID) (Counts, error) {
	members, err := e.members.ListByOrg(ctx, orgID)
	if err != nil {
		return Counts{}, err
	}

	now := e.now()
	var counts Counts
	for _, m := range members {
		counts.Total++
		if m.InGoodStanding(now) {
			counts.GoodStanding++
			// Only active members in good standing owe per-capita.
			if m.Status == member.StatusActive {
				counts.Remittable++
			}
		}
	}
	return counts, nil
}
