// Package notification escalates overdue obligations through tiered,
// multi-channel alerts and sends workflow notices.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fedremit/internal/auditlog"
	"fedremit/internal/organization"
	"fedremit/internal/remittance"
	"fedremit/pkg/platform/sentinel"
)

// fanoutLimit bounds concurrent deliveries per alert. Recipients × channels
// stays small, but external senders are slow and the sweep should not open
// an unbounded number of connections.
const fanoutLimit = 4

// Metrics is the slice of platform metrics delivery touches.
type Metrics interface {
	Delivery(channel, outcome string)
}

// Dispatcher resolves recipients and fans alerts out across channels.
type Dispatcher struct {
	orgs      organization.Store
	remits    remittance.Store
	email     EmailSender
	sms       SMSSender
	executive Recipient
	events    *auditlog.Publisher
	logger    *slog.Logger
	metrics   Metrics
	now       func() time.Time
}

func NewDispatcher(orgs organization.Store, remits remittance.Store, email EmailSender, sms SMSSender,
	executive Recipient, events *auditlog.Publisher, logger *slog.Logger, metrics Metrics) *Dispatcher {
	return &Dispatcher{
		orgs:      orgs,
		remits:    remits,
		email:     email,
		sms:       sms,
		executive: executive,
		events:    events,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// WithClock overrides the time source; tests pin the sweep instant.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// SendOverdueAlert delivers the tier-appropriate alert for one remittance to
// every resolved recipient on every required channel. Attempts run in a
// bounded group and each one is logged individually; one failure never
// blocks the rest. Executive copies are the sweep's job so they can batch.
func (d *Dispatcher) SendOverdueAlert(ctx context.Context, remittanceID uuid.UUID, daysOverdue int) error {
	tier, ok := TierFor(daysOverdue)
	if !ok {
		return fmt.Errorf("days overdue %d below first escalation tier", daysOverdue)
	}

	r, err := d.remits.Get(ctx, remittanceID)
	if err != nil {
		return fmt.Errorf("load remittance: %w", err)
	}
	recipients, err := d.resolveRecipients(ctx, r)
	if err != nil {
		return err
	}

	subject := overdueSubject(tier, r)
	emailBody := overdueEmailBody(tier, r, daysOverdue)
	smsBody := overdueSMSBody(r, daysOverdue)

	var mu sync.Mutex
	delivered, failed := 0, 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutLimit)
	for _, recipient := range recipients {
		for _, channel := range tier.Channels {
			g.Go(func() error {
				res := d.deliver(gctx, channel, recipient, subject, emailBody, smsBody)
				d.logAttempt(gctx, r.ID, tier.Name, channel, recipient, res)
				mu.Lock()
				if res.Success {
					delivered++
				} else {
					failed++
				}
				mu.Unlock()
				// Always nil: a failed attempt must not cancel siblings.
				return nil
			})
		}
	}
	_ = g.Wait()

	d.logEvent(ctx, r.ID.String(), "overdue_alert", fmt.Sprintf(
		"tier=%s days=%d delivered=%d failed=%d", tier.Name, daysOverdue, delivered, failed))
	return nil
}

// SendMonthlyReminder nudges an organization about an un-submitted period.
// If a remittance already exists for the period, the reminder is a no-op.
func (d *Dispatcher) SendMonthlyReminder(ctx context.Context, orgID uuid.UUID, month, year int) error {
	if _, err := d.remits.GetByPeriod(ctx, orgID, month, year); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("check existing remittance: %w", err)
	}

	org, err := d.orgs.Get(ctx, orgID)
	if err != nil {
		return fmt.Errorf("load organization: %w", err)
	}
	if org.ContactEmail == "" {
		return nil
	}

	day := org.Config.MergeDefaults().RemittanceDay
	res := d.email.Send(ctx, org.ContactEmail, reminderSubject(month, year), reminderEmailBody(month, year, day))
	d.logAttempt(ctx, orgID, "reminder", ChannelEmail, Recipient{Name: org.Name, Email: org.ContactEmail}, res)
	d.logEvent(ctx, orgID.String(), "monthly_reminder", fmt.Sprintf("month=%d year=%d success=%t", month, year, res.Success))
	return nil
}

// ProcessOverdueRemittances is the daily sweep. It fires alerts only at the
// exact boundary values so each remittance is alerted once per tier, and
// folds everything crossing the 30-day boundary into one batched executive
// escalation.
func (d *Dispatcher) ProcessOverdueRemittances(ctx context.Context) error {
	rows, err := d.remits.ListUnpaid(ctx)
	if err != nil {
		return fmt.Errorf("list unpaid remittances: %w", err)
	}

	now := d.now()
	var executiveBatch []*remittance.Remittance
	for _, r := range rows {
		days := r.DaysOverdue(now)
		if !AtBoundary(days) {
			continue
		}
		if err := d.SendOverdueAlert(ctx, r.ID, days); err != nil {
			d.logger.ErrorContext(ctx, "overdue alert failed, continuing sweep",
				"remittance_id", r.ID, "days_overdue", days, "error", err)
		}
		if days == 30 {
			executiveBatch = append(executiveBatch, r)
		}
	}

	if len(executiveBatch) > 0 {
		d.sendExecutiveEscalation(ctx, executiveBatch)
	}
	return nil
}

// sendExecutiveEscalation sends one consolidated notice covering every
// remittance that crossed the 30-day boundary this sweep.
func (d *Dispatcher) sendExecutiveEscalation(ctx context.Context, rows []*remittance.Remittance) {
	if d.executive.Email == "" {
		d.logger.WarnContext(ctx, "no executive contact configured, skipping escalation",
			"count", len(rows))
		return
	}
	res := d.email.Send(ctx, d.executive.Email, escalationSubject(len(rows)), escalationEmailBody(rows))
	d.logAttempt(ctx, uuid.Nil, "executive_escalation", ChannelEmail, d.executive, res)
	d.logEvent(ctx, "executive", "executive_escalation",
		fmt.Sprintf("count=%d success=%t", len(rows), res.Success))
}

// ApprovalRequested implements the approval engine's notifier port: the
// parent organization's contact reviews incoming submissions.
func (d *Dispatcher) ApprovalRequested(ctx context.Context, r *remittance.Remittance, level string) error {
	org, err := d.orgs.Get(ctx, r.ToOrgID)
	if err != nil {
		return fmt.Errorf("load approver organization: %w", err)
	}
	if org.ContactEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Remittance for %s awaiting %s approval", periodLabel(r), level)
	body := fmt.Sprintf("<p>A per-capita remittance of $%.2f for %s is awaiting %s-level approval.</p>",
		r.TotalAmount, periodLabel(r), level)
	res := d.email.Send(ctx, org.ContactEmail, subject, body)
	d.logAttempt(ctx, r.ID, "approval_requested", ChannelEmail, Recipient{Name: org.Name, Email: org.ContactEmail}, res)
	return nil
}

// SubmissionRejected notifies the submitting organization.
func (d *Dispatcher) SubmissionRejected(ctx context.Context, r *remittance.Remittance, reason string) error {
	org, err := d.orgs.Get(ctx, r.FromOrgID)
	if err != nil {
		return fmt.Errorf("load submitting organization: %w", err)
	}
	if org.ContactEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Remittance for %s was rejected", periodLabel(r))
	body := fmt.Sprintf("<p>Your per-capita remittance for %s was rejected: %s</p><p>Correct and resubmit.</p>",
		periodLabel(r), reason)
	res := d.email.Send(ctx, org.ContactEmail, subject, body)
	d.logAttempt(ctx, r.ID, "submission_rejected", ChannelEmail, Recipient{Name: org.Name, Email: org.ContactEmail}, res)
	return nil
}

// RemittanceFinalized notifies the submitter that all levels signed off.
func (d *Dispatcher) RemittanceFinalized(ctx context.Context, r *remittance.Remittance) error {
	org, err := d.orgs.Get(ctx, r.FromOrgID)
	if err != nil {
		return fmt.Errorf("load submitting organization: %w", err)
	}
	if org.ContactEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Remittance for %s fully approved", periodLabel(r))
	body := fmt.Sprintf("<p>Your per-capita remittance of $%.2f for %s has completed all approval levels.</p>",
		r.TotalAmount, periodLabel(r))
	res := d.email.Send(ctx, org.ContactEmail, subject, body)
	d.logAttempt(ctx, r.ID, "remittance_finalized", ChannelEmail, Recipient{Name: org.Name, Email: org.ContactEmail}, res)
	return nil
}

// resolveRecipients gathers the submitting organization's contact plus the
// parent's, skipping entries with no email at all.
func (d *Dispatcher) resolveRecipients(ctx context.Context, r *remittance.Remittance) ([]Recipient, error) {
	org, err := d.orgs.Get(ctx, r.FromOrgID)
	if err != nil {
		return nil, fmt.Errorf("load submitting organization: %w", err)
	}

	var recipients []Recipient
	if org.ContactEmail != "" || org.ContactPhone != "" {
		recipients = append(recipients, Recipient{Name: org.Name, Email: org.ContactEmail, Phone: org.ContactPhone})
	}
	if parent, err := d.orgs.Get(ctx, r.ToOrgID); err == nil {
		if parent.ContactEmail != "" || parent.ContactPhone != "" {
			recipients = append(recipients, Recipient{Name: parent.Name, Email: parent.ContactEmail, Phone: parent.ContactPhone})
		}
	} else {
		d.logger.WarnContext(ctx, "parent organization lookup failed",
			"org_id", r.ToOrgID, "error", err)
	}
	return recipients, nil
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, recipient Recipient, subject, emailBody, smsBody string) SendResult {
	switch channel {
	case ChannelEmail:
		if recipient.Email == "" {
			return SendResult{Err: "no email address"}
		}
		return d.email.Send(ctx, recipient.Email, subject, emailBody)
	case ChannelSMS:
		if recipient.Phone == "" {
			return SendResult{Err: "no phone number"}
		}
		return d.sms.Send(ctx, recipient.Phone, smsBody)
	default:
		return SendResult{Err: "unknown channel " + string(channel)}
	}
}

func (d *Dispatcher) logAttempt(ctx context.Context, subject uuid.UUID, kind string, channel Channel, recipient Recipient, res SendResult) {
	outcome := "sent"
	detail := res.MessageID
	if !res.Success {
		outcome = "failed"
		detail = res.Err
	}
	if d.metrics != nil {
		d.metrics.Delivery(string(channel), outcome)
	}
	if d.events == nil {
		return
	}
	d.events.Emit(ctx, auditlog.Event{
		Kind:    auditlog.KindNotification,
		Subject: subject.String(),
		Action:  kind + "_" + string(channel),
		Outcome: outcome,
		Detail:  fmt.Sprintf("to=%s %s", recipient.Name, detail),
	})
}

func (d *Dispatcher) logEvent(ctx context.Context, subject, action, detail string) {
	if d.events == nil {
		return
	}
	d.events.Emit(ctx, auditlog.Event{
		Kind:    auditlog.KindNotification,
		Subject: subject,
		Action:  action,
		Outcome: "summary",
		Detail:  detail,
	})
}
