// Package calculator computes periodic per-capita obligations and is the
// entry point for the monthly batch run.
package calculator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"fedremit/internal/organization"
	"fedremit/internal/remittance"
	"fedremit/internal/standing"
)

// Calculation is one organization's computed obligation for a period.
// Applicable is false when the organization has no parent or no positive
// configured rate; that is a skip, not a failure.
type Calculation struct {
	Applicable bool
	Reason     string
	Remittance remittance.Remittance
}

// Summary aggregates a Save batch. A bad record increments Errors and the
// batch keeps going.
type Summary struct {
	Saved  int
	Errors int
}

// Metrics is the slice of the platform metrics the calculator touches.
type Metrics interface {
	CalculationProduced()
	RemittanceSaved()
}

// Calculator derives and persists per-capita remittances.
type Calculator struct {
	orgs     organization.Store
	standing *standing.Evaluator
	remits   remittance.Store
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time
}

func New(orgs organization.Store, evaluator *standing.Evaluator, remits remittance.Store, logger *slog.Logger, metrics Metrics) *Calculator {
	return &Calculator{
		orgs:     orgs,
		standing: evaluator,
		remits:   remits,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithClock overrides the time source; tests pin the batch instant.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// Calculate computes one organization's obligation for a period. The due
// date falls inside the remittance month itself on the configured day
// (month 6, year 2025, day 15 → 2025-06-15).
func (c *Calculator) Calculate(ctx context.Context, orgID uuid.UUID, month, year int) (Calculation, error) {
	if month < 1 || month > 12 {
		return Calculation{}, fmt.Errorf("month %d out of range", month)
	}

	org, err := c.orgs.Get(ctx, orgID)
	if err != nil {
		return Calculation{}, fmt.Errorf("load organization: %w", err)
	}
	if org.ParentID == nil {
		return Calculation{Reason: "no parent organization"}, nil
	}
	cfg := org.Config.MergeDefaults()
	if cfg.PerCapitaRate <= 0 {
		return Calculation{Reason: "no positive per-capita rate configured"}, nil
	}

	counts, err := c.standing.Evaluate(ctx, orgID)
	if err != nil {
		return Calculation{}, fmt.Errorf("evaluate standing: %w", err)
	}

	amount := math.Round(float64(counts.Remittable)*cfg.PerCapitaRate*100) / 100
	dueDate := time.Date(year, time.Month(month), cfg.RemittanceDay, 0, 0, 0, 0, time.UTC)

	if c.metrics != nil {
		c.metrics.CalculationProduced()
	}
	return Calculation{
		Applicable: true,
		Remittance: remittance.Remittance{
			FromOrgID:         org.ID,
			ToOrgID:           *org.ParentID,
			Month:             month,
			Year:              year,
			TotalMembers:      counts.Total,
			RemittableMembers: counts.Remittable,
			PerCapitaRate:     cfg.PerCapitaRate,
			TotalAmount:       amount,
			DueDate:           dueDate,
			ApprovalStatus:    remittance.StatusDraft,
			PaymentStatus:     remittance.PaymentPending,
		},
	}, nil
}

// CalculateAll iterates every active organization with a parent and positive
// rate. One organization's failure is logged and skipped; the batch never
// aborts.
func (c *Calculator) CalculateAll(ctx context.Context, month, year int) ([]Calculation, error) {
	orgs, err := c.orgs.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active organizations: %w", err)
	}

	var out []Calculation
	for _, org := range orgs {
		if org.ParentID == nil || org.Config.MergeDefaults().PerCapitaRate <= 0 {
			continue
		}
		calc, err := c.Calculate(ctx, org.ID, month, year)
		if err != nil {
			c.logger.ErrorContext(ctx, "calculation failed, skipping organization",
				"org_id", org.ID, "month", month, "year", year, "error", err)
			continue
		}
		if calc.Applicable {
			out = append(out, calc)
		}
	}
	return out, nil
}

// Save upserts calculations on the composite period key. Reruns for the same
// period refresh the existing row instead of duplicating it. Errors are
// counted, never propagated past this call.
func (c *Calculator) Save(ctx context.Context, calcs []Calculation) Summary {
	var summary Summary
	for i := range calcs {
		if !calcs[i].Applicable {
			continue
		}
		r := calcs[i].Remittance
		if err := c.remits.Upsert(ctx, &r); err != nil {
			summary.Errors++
			c.logger.ErrorContext(ctx, "save remittance failed",
				"from_org", r.FromOrgID, "month", r.Month, "year", r.Year, "error", err)
			continue
		}
		summary.Saved++
		if c.metrics != nil {
			c.metrics.RemittanceSaved()
		}
	}
	return summary
}

// MarkOverdue flips pending payment status to overdue for remittances more
// than the grace period past due.
func (c *Calculator) MarkOverdue(ctx context.Context) (int, error) {
	cutoff := c.now().AddDate(0, 0, -remittance.OverdueGraceDays)
	n, err := c.remits.MarkOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	if n > 0 {
		c.logger.InfoContext(ctx, "marked remittances overdue", "count", n)
	}
	return n, nil
}

// ProcessMonthly is the cron entry point: calculate, save, then mark
// overdue, strictly in that order so overdue-marking always sees the current
// period's recomputed figures.
func (c *Calculator) ProcessMonthly(ctx context.Context) (Summary, error) {
	now := c.now()
	month, year := int(now.Month()), now.Year()

	calcs, err := c.CalculateAll(ctx, month, year)
	if err != nil {
		return Summary{}, err
	}
	summary := c.Save(ctx, calcs)
	if _, err := c.MarkOverdue(ctx); err != nil {
		// Overdue marking failing should not hide a successful save.
		c.logger.ErrorContext(ctx, "overdue marking failed", "error", err)
	}
	c.logger.InfoContext(ctx, "monthly remittance batch complete",
		"month", month, "year", year, "saved", summary.Saved, "errors", summary.Errors)
	return summary, nil
}
