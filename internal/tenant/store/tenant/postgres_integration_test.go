//go:build integration

package tenant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hearthgate/internal/tenant/models"
	tenantstore "hearthgate/internal/tenant/store/tenant"
	id "hearthgate/pkg/domain"
	"hearthgate/pkg/platform/sentinel"
	"hearthgate/pkg/testutil"
	"hearthgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *tenantstore.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = tenantstore.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateModuleTables(s.ctx))
}

func (s *PostgresStoreSuite) TestFindOrCreateByNameReusesHousehold() {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := s.store.FindOrCreateByName(s.ctx, models.DefaultHouseholdName, now)
	s.Require().NoError(err)
	second, err := s.store.FindOrCreateByName(s.ctx, models.DefaultHouseholdName, now.Add(time.Hour))
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(models.DefaultHouseholdName, second.Name)

	byID, err := s.store.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, byID.ID)
}

func (s *PostgresStoreSuite) TestConcurrentFindOrCreate() {
	now := time.Now().UTC()
	ids := testutil.Collect(8, func(int) id.TenantID {
		t, err := s.store.FindOrCreateByName(s.ctx, models.DefaultHouseholdName, now)
		if err != nil {
			return id.TenantID{}
		}
		return t.ID
	})
	for _, got := range ids {
		s.Equal(ids[0], got)
		s.False(got.IsNil())
	}

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestCreateIfNameAvailableIgnoresCase() {
	now := time.Now().UTC()
	a, err := models.NewTenant(id.NewTenantID(), "Acme", now)
	s.Require().NoError(err)
	b, err := models.NewTenant(id.NewTenantID(), "ACME", now)
	s.Require().NoError(err)

	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, a))
	s.True(errors.Is(s.store.CreateIfNameAvailable(s.ctx, b), sentinel.ErrAlreadyUsed))
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.NewTenantID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
