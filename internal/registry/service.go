// Package registry reconciles local organization records against the
// external authoritative affiliate registry, and ingests its signed
// webhooks.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fedremit/internal/auditlog"
	"fedremit/internal/organization"
	"fedremit/internal/review"
)

// Fetcher is the registry client surface the service needs; tests stub it.
type Fetcher interface {
	Fetch(ctx context.Context, affiliateCode string) (*RemoteOrganization, error)
}

// Metrics is the slice of platform metrics sync touches.
type Metrics interface {
	SyncOutcome(outcome string)
	WebhookOutcome(outcome string)
}

// Service reconciles organizations with the external registry.
type Service struct {
	orgs    organization.Store
	client  Fetcher
	cache   *RecordCache
	reviews review.Store
	events  *auditlog.Publisher
	logger  *slog.Logger
	metrics Metrics
	// syncDelay spaces sequential SyncAll calls under the upstream rate
	// ceiling. Batches stay sequential on purpose: the quota is shared and
	// per-key upserts must not race.
	syncDelay time.Duration
	sleep     func(context.Context, time.Duration) error
}

func NewService(orgs organization.Store, client Fetcher, cache *RecordCache, reviews review.Store,
	events *auditlog.Publisher, logger *slog.Logger, metrics Metrics, syncDelay time.Duration) *Service {
	return &Service{
		orgs:      orgs,
		client:    client,
		cache:     cache,
		reviews:   reviews,
		events:    events,
		logger:    logger,
		metrics:   metrics,
		syncDelay: syncDelay,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// SyncOrganization reconciles one organization. Only remote_wins fields are
// applied; manual_review differences feed the review queue without blocking
// anything else. No changed fields means a logged skip.
func (s *Service) SyncOrganization(ctx context.Context, orgID uuid.UUID) (SyncResult, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return SyncResult{Outcome: OutcomeFailed, Err: err}, fmt.Errorf("load organization: %w", err)
	}
	if org.AffiliateCode == "" {
		err := errors.New("organization has no affiliate code")
		s.logSync(ctx, org.ID, string(OutcomeFailed), err.Error())
		return SyncResult{Outcome: OutcomeFailed, Err: err}, nil
	}

	remote, err := s.fetch(ctx, org.AffiliateCode)
	if err != nil {
		s.logSync(ctx, org.ID, string(OutcomeFailed), err.Error())
		s.count(string(OutcomeFailed))
		return SyncResult{Outcome: OutcomeFailed, Err: err}, nil
	}

	return s.applyRemote(ctx, org, remote)
}

// SyncAll reconciles every registry-linked organization sequentially with a
// fixed delay between calls. One organization's failure never aborts the
// batch; outcomes aggregate into the summary.
func (s *Service) SyncAll(ctx context.Context) (Summary, error) {
	orgs, err := s.orgs.ListWithAffiliateCode(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list registry-linked organizations: %w", err)
	}

	var summary Summary
	for i, org := range orgs {
		if i > 0 && s.syncDelay > 0 {
			if err := s.sleep(ctx, s.syncDelay); err != nil {
				return summary, err
			}
		}
		res, err := s.SyncOrganization(ctx, org.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "sync failed, continuing batch",
				"org_id", org.ID, "error", err)
			summary.Failed++
			continue
		}
		summary.record(res)
	}
	s.logger.InfoContext(ctx, "registry sync batch complete",
		"created", summary.Created, "updated", summary.Updated,
		"skipped", summary.Skipped, "failed", summary.Failed, "conflicts", summary.Conflicts)
	return summary, nil
}

// CreateFromRemote materializes a local organization from a registry record.
func (s *Service) CreateFromRemote(ctx context.Context, remote *RemoteOrganization) (*organization.Organization, error) {
	org := &organization.Organization{
		ID:               uuid.New(),
		Name:             remote.Name,
		Status:           mapRemoteStatus(remote.Status, organization.StatusActive),
		AffiliateCode:    remote.AffiliateCode,
		LegalName:        remote.LegalName,
		OrganizationType: remote.OrganizationType,
		Province:         remote.Province,
		City:             remote.City,
		PostalCode:       remote.PostalCode,
		ContactEmail:     remote.ContactEmail,
		ContactPhone:     remote.ContactPhone,
		MembershipCount:  remote.MembershipCount,
	}
	if remote.PerCapitaRate != nil {
		org.Config.PerCapitaRate = *remote.PerCapitaRate
	}
	if err := s.orgs.Save(ctx, org); err != nil {
		s.logSync(ctx, org.ID, string(OutcomeFailed), err.Error())
		return nil, fmt.Errorf("create organization from remote: %w", err)
	}
	s.logSync(ctx, org.ID, string(OutcomeCreated), "created from registry record "+remote.AffiliateCode)
	s.count(string(OutcomeCreated))
	return org, nil
}

func (s *Service) fetch(ctx context.Context, affiliateCode string) (*RemoteOrganization, error) {
	if cached, err := s.cache.Get(ctx, affiliateCode); err != nil {
		s.logger.WarnContext(ctx, "registry cache read failed", "error", err)
	} else if cached != nil {
		return cached, nil
	}

	remote, err := s.client.Fetch(ctx, affiliateCode)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, remote); err != nil {
		s.logger.WarnContext(ctx, "registry cache write failed", "error", err)
	}
	return remote, nil
}

func (s *Service) applyRemote(ctx context.Context, org *organization.Organization, remote *RemoteOrganization) (SyncResult, error) {
	changes := diff(org, remote)
	if len(changes) == 0 {
		s.logSync(ctx, org.ID, string(OutcomeSkipped), "no fields changed")
		s.count(string(OutcomeSkipped))
		return SyncResult{Outcome: OutcomeSkipped}, nil
	}

	res := SyncResult{Outcome: OutcomeUpdated}
	for _, change := range changes {
		switch change.Resolution {
		case RemoteWins:
			change.apply(org)
			res.AppliedFields = append(res.AppliedFields, change.Field)
		case ManualReview:
			res.Conflicts++
			if err := s.reviews.Add(ctx, &review.Item{
				OrgID:       org.ID,
				Field:       change.Field,
				LocalValue:  change.Local,
				RemoteValue: change.Remote,
			}); err != nil {
				s.logger.ErrorContext(ctx, "queue review item failed",
					"org_id", org.ID, "field", change.Field, "error", err)
			}
		case LocalWins:
			// Local value stands; nothing to do.
		}
	}

	if len(res.AppliedFields) == 0 {
		s.logSync(ctx, org.ID, string(OutcomeSkipped),
			fmt.Sprintf("%d conflict(s) queued, no fields applied", res.Conflicts))
		s.count(string(OutcomeSkipped))
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	if err := s.orgs.Save(ctx, org); err != nil {
		s.logSync(ctx, org.ID, string(OutcomeFailed), err.Error())
		s.count(string(OutcomeFailed))
		return SyncResult{Outcome: OutcomeFailed, Err: err}, nil
	}

	s.logSync(ctx, org.ID, string(OutcomeUpdated),
		fmt.Sprintf("applied %v, %d conflict(s) queued", res.AppliedFields, res.Conflicts))
	s.count(string(OutcomeUpdated))
	return res, nil
}

func (s *Service) logSync(ctx context.Context, orgID uuid.UUID, outcome, detail string) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, auditlog.Event{
		Kind:    auditlog.KindSync,
		Subject: orgID.String(),
		Action:  "sync",
		Outcome: outcome,
		Detail:  detail,
	})
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.SyncOutcome(outcome)
	}
}
