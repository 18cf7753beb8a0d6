//go:build integration

package organization_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedremit/internal/organization"
	"fedremit/pkg/platform/sentinel"
	"fedremit/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *organization.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = organization.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "organizations"))
}

func newTestOrganization(name string) *organization.Organization {
	return &organization.Organization{
		ID:     uuid.New(),
		Name:   name,
		Status: organization.StatusActive,
		Config: organization.Config{
			PerCapitaRate:  2.50,
			RemittanceDay:  15,
			ApprovalLevels: []string{"local", "national"},
		},
	}
}

func (s *PostgresStoreSuite) TestSaveRoundTrip() {
	parent := newTestOrganization("CLC")
	s.Require().NoError(s.store.Save(s.ctx, parent))

	org := newTestOrganization("Local 100")
	org.ParentID = &parent.ID
	org.AffiliateCode = "AFF-100"
	org.LegalName = "Local 100 of the Federation"
	org.Province = "ON"
	org.City = "Toronto"
	org.ContactEmail = "treasurer@local100.example"
	org.MembershipCount = 250
	s.Require().NoError(s.store.Save(s.ctx, org))

	got, err := s.store.Get(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Equal("Local 100", got.Name)
	s.Require().NotNil(got.ParentID)
	s.Equal(parent.ID, *got.ParentID)
	s.Equal("AFF-100", got.AffiliateCode)
	s.Equal("ON", got.Province)
	s.Equal(250, got.MembershipCount)
	s.InDelta(2.50, got.Config.PerCapitaRate, 0.001)
	s.Equal(15, got.Config.RemittanceDay)
	s.Equal([]string{"local", "national"}, got.Config.ApprovalLevels)
}

func (s *PostgresStoreSuite) TestSaveIsUpsert() {
	org := newTestOrganization("Local 200")
	s.Require().NoError(s.store.Save(s.ctx, org))

	org.Name = "Local 200 Renamed"
	org.Status = organization.StatusSuspended
	s.Require().NoError(s.store.Save(s.ctx, org))

	got, err := s.store.Get(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Equal("Local 200 Renamed", got.Name)
	s.Equal(organization.StatusSuspended, got.Status)

	rows, err := s.store.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGetByAffiliateCode() {
	org := newTestOrganization("Local 300")
	org.AffiliateCode = "AFF-300"
	s.Require().NoError(s.store.Save(s.ctx, org))

	got, err := s.store.GetByAffiliateCode(s.ctx, "AFF-300")
	s.Require().NoError(err)
	s.Equal(org.ID, got.ID)

	// An empty code must never match the unlinked rows.
	unlinked := newTestOrganization("Local 301")
	s.Require().NoError(s.store.Save(s.ctx, unlinked))
	_, err = s.store.GetByAffiliateCode(s.ctx, "")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListWithAffiliateCode() {
	linked := newTestOrganization("Local 400")
	linked.AffiliateCode = "AFF-400"
	s.Require().NoError(s.store.Save(s.ctx, linked))
	s.Require().NoError(s.store.Save(s.ctx, newTestOrganization("Local 401")))

	rows, err := s.store.ListWithAffiliateCode(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("AFF-400", rows[0].AffiliateCode)
}
