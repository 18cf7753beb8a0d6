package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedremit/internal/auditlog"
	"fedremit/internal/organization"
	"fedremit/internal/review"
)

type SyncServiceSuite struct {
	suite.Suite
	ctx     context.Context
	orgs    *organization.MemoryStore
	reviews *review.MemoryStore
	fetcher *stubFetcher
	metrics *stubMetrics
	svc     *Service
	slept   []time.Duration
}

func TestSyncServiceSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceSuite))
}

func (s *SyncServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.orgs = organization.NewMemory()
	s.reviews = review.NewMemory()
	s.fetcher = &stubFetcher{records: map[string]*RemoteOrganization{}}
	s.metrics = newStubMetrics()
	s.slept = nil

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := auditlog.NewPublisher(auditlog.NewMemory(), log)
	s.svc = NewService(s.orgs, s.fetcher, NewRecordCache(nil, 0), s.reviews, events, log, s.metrics, 100*time.Millisecond)
	s.svc.sleep = func(_ context.Context, d time.Duration) error {
		s.slept = append(s.slept, d)
		return nil
	}
}

func (s *SyncServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *SyncServiceSuite) seedOrg(code string) *organization.Organization {
	org := localOrg()
	org.ID = uuid.New()
	org.AffiliateCode = code
	s.Require().NoError(s.orgs.Save(s.ctx, org))
	return org
}

func (s *SyncServiceSuite) TestSyncOrganization() {
	s.Run("remote-wins fields apply, local-wins stand", func() {
		org := s.seedOrg("AFF-100")
		remote := remoteOrg()
		remote.Name = "Local 100 Amalgamated"
		remote.ContactEmail = "registry@example.org"
		s.fetcher.records["AFF-100"] = remote

		res, err := s.svc.SyncOrganization(s.ctx, org.ID)
		s.Require().NoError(err)
		s.Equal(OutcomeUpdated, res.Outcome)
		s.Equal([]string{"name"}, res.AppliedFields)

		updated, err := s.orgs.Get(s.ctx, org.ID)
		s.Require().NoError(err)
		s.Equal("Local 100 Amalgamated", updated.Name)
		s.Equal("treasurer@local100.example", updated.ContactEmail)
	})

	s.Run("rate conflict queues manual review without blocking", func() {
		org := s.seedOrg("AFF-101")
		remote := remoteOrg()
		remote.AffiliateCode = "AFF-101"
		remote.Province = "QC"
		rate := 3.75
		remote.PerCapitaRate = &rate
		s.fetcher.records["AFF-101"] = remote

		res, err := s.svc.SyncOrganization(s.ctx, org.ID)
		s.Require().NoError(err)
		s.Equal(OutcomeUpdated, res.Outcome)
		s.Equal(1, res.Conflicts)
		s.Equal([]string{"province"}, res.AppliedFields)

		// Rate itself is untouched.
		updated, err := s.orgs.Get(s.ctx, org.ID)
		s.Require().NoError(err)
		s.InDelta(2.50, updated.Config.PerCapitaRate, 0.001)

		pending, err := s.reviews.ListPending(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(pending, 1)
		s.Equal("perCapitaRate", pending[0].Field)
		s.Equal("3.75", pending[0].RemoteValue)
	})

	s.Run("no changed fields is a skip", func() {
		org := s.seedOrg("AFF-102")
		remote := remoteOrg()
		remote.AffiliateCode = "AFF-102"
		s.fetcher.records["AFF-102"] = remote

		res, err := s.svc.SyncOrganization(s.ctx, org.ID)
		s.Require().NoError(err)
		s.Equal(OutcomeSkipped, res.Outcome)
	})

	s.Run("missing affiliate code fails without calling upstream", func() {
		org := s.seedOrg("")
		before := s.fetcher.calls

		res, err := s.svc.SyncOrganization(s.ctx, org.ID)
		s.Require().NoError(err)
		s.Equal(OutcomeFailed, res.Outcome)
		s.Equal(before, s.fetcher.calls)
	})
}

func (s *SyncServiceSuite) TestSyncAll() {
	s.Run("batch isolates failures and spaces calls", func() {
		good := s.seedOrg("AFF-OK")
		s.seedOrg("AFF-MISSING")
		remote := remoteOrg()
		remote.AffiliateCode = "AFF-OK"
		remote.City = "Ottawa"
		s.fetcher.records["AFF-OK"] = remote

		summary, err := s.svc.SyncAll(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, summary.Updated)
		s.Equal(1, summary.Failed)
		s.Len(s.slept, 1) // delay between organizations, not before the first

		updated, err := s.orgs.Get(s.ctx, good.ID)
		s.Require().NoError(err)
		s.Equal("Ottawa", updated.City)
	})

	s.Run("upstream outage fails every row but finishes the batch", func() {
		s.seedOrg("AFF-1")
		s.seedOrg("AFF-2")
		s.fetcher.err = errors.New("registry down")

		summary, err := s.svc.SyncAll(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, summary.Failed)
	})
}
