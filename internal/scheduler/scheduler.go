// Package scheduler drives the periodic remittance lifecycle: monthly
// calculation, the daily overdue sweep, and pre-deadline reminders.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"fedremit/internal/notification"
	"fedremit/internal/organization"
	"fedremit/internal/remittance/calculator"
)

// reminderLeadDays is how far ahead of an organization's remittance day
// the monthly reminder goes out.
const reminderLeadDays = 3

// Scheduler wakes on an interval and runs whichever lifecycle work the
// calendar owes since the last tick.
type Scheduler struct {
	calc       *calculator.Calculator
	dispatcher *notification.Dispatcher
	orgs       organization.Store
	logger     *slog.Logger
	interval   time.Duration
	now        func() time.Time
}

func New(calc *calculator.Calculator, dispatcher *notification.Dispatcher, orgs organization.Store,
	logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		calc:       calc,
		dispatcher: dispatcher,
		orgs:       orgs,
		logger:     logger,
		interval:   interval,
		now:        time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run blocks until ctx is cancelled. The first tick of a new month runs
// the monthly calculation; the first tick of a new day runs the overdue
// sweep and reminders. Catch-up after downtime is a single run, not one
// per missed tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastDay, lastMonth string
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			now := s.now().UTC()
			if month := now.Format("2006-01"); month != lastMonth {
				lastMonth = month
				s.runMonthly(ctx)
			}
			if day := now.Format("2006-01-02"); day != lastDay {
				lastDay = day
				s.runDaily(ctx, now)
			}
		}
	}
}

func (s *Scheduler) runMonthly(ctx context.Context) {
	summary, err := s.calc.ProcessMonthly(ctx)
	if err != nil {
		s.logger.Error("monthly remittance run failed", "error", err)
		return
	}
	s.logger.Info("monthly remittance run complete",
		"saved", summary.Saved, "errors", summary.Errors)
}

func (s *Scheduler) runDaily(ctx context.Context, now time.Time) {
	if _, err := s.calc.MarkOverdue(ctx); err != nil {
		s.logger.Error("overdue sweep failed", "error", err)
	}
	if err := s.dispatcher.ProcessOverdueRemittances(ctx); err != nil {
		s.logger.Error("overdue escalation failed", "error", err)
	}
	s.sendReminders(ctx, now)
}

// sendReminders notifies organizations whose remittance day lands
// reminderLeadDays from now. The dispatcher skips organizations that have
// already submitted for the period.
func (s *Scheduler) sendReminders(ctx context.Context, now time.Time) {
	orgs, err := s.orgs.ListActive(ctx)
	if err != nil {
		s.logger.Error("list organizations for reminders failed", "error", err)
		return
	}
	target := now.AddDate(0, 0, reminderLeadDays)
	for _, org := range orgs {
		cfg := org.Config.MergeDefaults()
		if cfg.RemittanceDay != target.Day() {
			continue
		}
		if err := s.dispatcher.SendMonthlyReminder(ctx, org.ID, int(target.Month()), target.Year()); err != nil {
			s.logger.Error("reminder failed", "org_id", org.ID, "error", err)
		}
	}
}
