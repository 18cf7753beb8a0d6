// Package approval enforces the ordered, role-gated sign-off state machine
// for remittances and maintains its append-only audit trail.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fedremit/internal/auditlog"
	"fedremit/internal/organization"
	"fedremit/internal/remittance"
	"fedremit/pkg/platform/sentinel"
)

// Actor is the authenticated user performing a workflow operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Notifier is the outbound alerting port. Delivery failures never fail a
// transition; the service logs and moves on.
type Notifier interface {
	ApprovalRequested(ctx context.Context, r *remittance.Remittance, level string) error
	SubmissionRejected(ctx context.Context, r *remittance.Remittance, reason string) error
	RemittanceFinalized(ctx context.Context, r *remittance.Remittance) error
}

// Metrics is the slice of platform metrics the workflow engine touches.
type Metrics interface {
	Transition(action, outcome string)
}

// Service is the approval workflow engine.
type Service struct {
	remits   remittance.Store
	orgs     organization.Store
	records  Store
	notifier Notifier
	events   *auditlog.Publisher
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time
}

func NewService(remits remittance.Store, orgs organization.Store, records Store,
	notifier Notifier, events *auditlog.Publisher, logger *slog.Logger, metrics Metrics) *Service {
	return &Service{
		remits:   remits,
		orgs:     orgs,
		records:  records,
		notifier: notifier,
		events:   events,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithClock overrides the time source; tests pin transition timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit moves a draft (or previously rejected) remittance into the first
// configured approval level. The compliance gate runs first; on failure the
// remittance stays put and the error list comes back in the result.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, actor Actor) (Result, error) {
	r, err := s.remits.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.refused(ctx, failure(CodeNotFound, ActionSubmitted, "remittance not found")), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load remittance: %w", err)
	}

	current := r.ApprovalStatus
	if current != remittance.StatusDraft && current != remittance.StatusRejected {
		return s.refused(ctx, failure(CodeInvalidState, ActionSubmitted,
			fmt.Sprintf("cannot submit from status %q", current))), nil
	}

	gate := complianceGate(r, s.now())
	if !gate.Passed() {
		res := failure(CodeCompliance, ActionSubmitted, gate.Errors...)
		res.Warnings = gate.Warnings
		return s.refused(ctx, res), nil
	}

	levels, err := s.approvalLevels(ctx, r)
	if err != nil {
		return Result{}, err
	}
	first := levels[0]
	next := remittance.PendingAt(first)
	submittedAt := s.now()

	if err := s.remits.UpdateApprovalStatus(ctx, id, current, next,
		remittance.TransitionUpdate{SubmittedAt: &submittedAt}); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return s.refused(ctx, failure(CodeInvalidState, ActionSubmitted, "remittance state changed concurrently")), nil
		}
		return Result{}, fmt.Errorf("advance to %s: %w", next, err)
	}

	s.appendRecord(ctx, &Record{
		RemittanceID: id,
		Level:        first,
		Action:       ActionSubmitted,
		ActorID:      actor.ID,
	})
	s.notify(ctx, func() error { return s.notifier.ApprovalRequested(ctx, r, first) })
	s.audit(ctx, id, string(ActionSubmitted), "ok", "")
	s.count(string(ActionSubmitted), "ok")

	return Result{OK: true, Action: ActionSubmitted, Status: string(next), Warnings: gate.Warnings}, nil
}

// Approve signs off one level. The current status must be exactly
// pending_<level> and the actor's role must cover that level or higher.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor Actor, level, comment string) (Result, error) {
	r, res, err := s.gateLevelAction(ctx, id, actor, level, ActionApproved)
	if err != nil || !res.OK {
		return res, err
	}

	levels, err := s.approvalLevels(ctx, r)
	if err != nil {
		return Result{}, err
	}
	next := nextStatus(levels, level)

	if err := s.remits.UpdateApprovalStatus(ctx, id, remittance.PendingAt(level), next,
		remittance.TransitionUpdate{}); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return s.refused(ctx, failure(CodeInvalidState, ActionApproved, "remittance state changed concurrently")), nil
		}
		return Result{}, fmt.Errorf("advance to %s: %w", next, err)
	}

	s.appendRecord(ctx, &Record{
		RemittanceID: id,
		Level:        level,
		Action:       ActionApproved,
		ActorID:      actor.ID,
		Comment:      comment,
	})
	if next == remittance.StatusApproved {
		s.notify(ctx, func() error { return s.notifier.RemittanceFinalized(ctx, r) })
	} else {
		s.notify(ctx, func() error { return s.notifier.ApprovalRequested(ctx, r, next.PendingLevel()) })
	}
	s.audit(ctx, id, string(ActionApproved), "ok", level)
	s.count(string(ActionApproved), "ok")

	return Result{OK: true, Action: ActionApproved, Status: string(next)}, nil
}

// Reject terminates the current workflow pass. Re-entry requires a fresh
// Submit.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor Actor, level, reason string) (Result, error) {
	r, res, err := s.gateLevelAction(ctx, id, actor, level, ActionRejected)
	if err != nil || !res.OK {
		return res, err
	}

	if err := s.remits.UpdateApprovalStatus(ctx, id, remittance.PendingAt(level), remittance.StatusRejected,
		remittance.TransitionUpdate{RejectionReason: &reason}); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return s.refused(ctx, failure(CodeInvalidState, ActionRejected, "remittance state changed concurrently")), nil
		}
		return Result{}, fmt.Errorf("reject remittance: %w", err)
	}

	s.appendRecord(ctx, &Record{
		RemittanceID:    id,
		Level:           level,
		Action:          ActionRejected,
		ActorID:         actor.ID,
		RejectionReason: reason,
	})
	s.notify(ctx, func() error { return s.notifier.SubmissionRejected(ctx, r, reason) })
	s.audit(ctx, id, string(ActionRejected), "ok", level)
	s.count(string(ActionRejected), "ok")

	return Result{OK: true, Action: ActionRejected, Status: string(remittance.StatusRejected)}, nil
}

// MarkPaid records settlement of a fully approved remittance.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, actor Actor) (Result, error) {
	paidAt := s.now()
	paid := remittance.PaymentPaid
	err := s.remits.UpdateApprovalStatus(ctx, id, remittance.StatusApproved, remittance.StatusPaid,
		remittance.TransitionUpdate{PaidAt: &paidAt, PaymentStatus: &paid})
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.refused(ctx, failure(CodeNotFound, ActionPaid, "remittance not found")), nil
	}
	if errors.Is(err, sentinel.ErrInvalidState) {
		return s.refused(ctx, failure(CodeInvalidState, ActionPaid, "only approved remittances can be marked paid")), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("mark paid: %w", err)
	}

	s.appendRecord(ctx, &Record{
		RemittanceID: id,
		Action:       ActionPaid,
		ActorID:      actor.ID,
	})
	s.audit(ctx, id, string(ActionPaid), "ok", "")
	s.count(string(ActionPaid), "ok")

	return Result{OK: true, Action: ActionPaid, Status: string(remittance.StatusPaid)}, nil
}

// History returns the full audit trail for a remittance, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*Record, error) {
	return s.records.ListByRemittance(ctx, id)
}

// gateLevelAction runs the shared approve/reject preconditions: existence,
// exact pending level, and role authority. Authority failures are reported
// distinctly from missing rows so UIs can show forbidden vs missing.
func (s *Service) gateLevelAction(ctx context.Context, id uuid.UUID, actor Actor, level string, action Action) (*remittance.Remittance, Result, error) {
	r, err := s.remits.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.refused(ctx, failure(CodeNotFound, action, "remittance not found")), nil
	}
	if err != nil {
		return nil, Result{}, fmt.Errorf("load remittance: %w", err)
	}

	if r.ApprovalStatus != remittance.PendingAt(level) {
		return nil, s.refused(ctx, failure(CodeInvalidState, action,
			fmt.Sprintf("remittance is %q, not pending %s approval", r.ApprovalStatus, level))), nil
	}
	if !actor.Role.Authorizes(level) {
		return nil, s.refused(ctx, failure(CodeUnauthorized, action,
			fmt.Sprintf("role %q does not authorize level %q", actor.Role, level))), nil
	}
	return r, Result{OK: true}, nil
}

func (s *Service) approvalLevels(ctx context.Context, r *remittance.Remittance) ([]string, error) {
	org, err := s.orgs.Get(ctx, r.FromOrgID)
	if err != nil {
		return nil, fmt.Errorf("load submitting organization: %w", err)
	}
	return org.Config.MergeDefaults().ApprovalLevels, nil
}

// nextStatus advances past the given level in the ordered chain.
func nextStatus(levels []string, level string) remittance.ApprovalStatus {
	for i, l := range levels {
		if l == level {
			if i == len(levels)-1 {
				return remittance.StatusApproved
			}
			return remittance.PendingAt(levels[i+1])
		}
	}
	// Level not in the chain at all; treat as terminal approval. The
	// pending-status check upstream makes this unreachable in practice.
	return remittance.StatusApproved
}

func (s *Service) appendRecord(ctx context.Context, record *Record) {
	record.CreatedAt = s.now()
	if err := s.records.Append(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "append approval record failed",
			"remittance_id", record.RemittanceID, "action", record.Action, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, send func() error) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil {
		s.logger.WarnContext(ctx, "workflow notification failed", "error", err)
	}
}

func (s *Service) audit(ctx context.Context, id uuid.UUID, action, outcome, detail string) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, auditlog.Event{
		Kind:    auditlog.KindApproval,
		Subject: id.String(),
		Action:  action,
		Outcome: outcome,
		Detail:  detail,
	})
}

func (s *Service) count(action, outcome string) {
	if s.metrics != nil {
		s.metrics.Transition(action, outcome)
	}
}

// refused records a failed expected-path attempt in the event log so the
// audit trail covers refusals too, then returns the result unchanged.
func (s *Service) refused(ctx context.Context, res Result) Result {
	if s.events != nil {
		detail := ""
		if len(res.Errors) > 0 {
			detail = res.Errors[0]
		}
		s.events.Emit(ctx, auditlog.Event{
			Kind:    auditlog.KindApproval,
			Action:  string(res.Action),
			Outcome: string(res.Code),
			Detail:  detail,
		})
	}
	s.count(string(res.Action), string(res.Code))
	return res
}
