//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credentry/internal/institution/models"
	"credentry/internal/institution/store"
	"credentry/pkg/domain"
	"credentry/pkg/platform/sentinel"
	"credentry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
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
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "registry_meta", "institutions"))
}

func addr(last byte) domain.Address {
	var a domain.Address
	a[0] = 0x01
	a[19] = last
	return a
}

func newInstitution(s *PostgresStoreSuite, last byte, role models.Role) *models.Institution {
	inst, err := models.NewInstitution(addr(last), "Institution", "", "", role, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return inst
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	inst := newInstitution(s, 0x01, models.RoleIssuer)
	s.Require().NoError(s.store.Create(s.ctx, inst))

	found, err := s.store.Find(s.ctx, inst.Address)
	s.Require().NoError(err)
	s.Equal(inst.Address, found.Address)
	s.Equal(inst.Name, found.Name)
	s.Equal(models.RoleIssuer, found.Role)
	s.True(found.Active)
}

func (s *PostgresStoreSuite) TestConcurrentDuplicateCreate() {
	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst := newInstitution(s, 0x02, models.RoleIssuer)
			switch err := s.store.Create(s.ctx, inst); {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestExecuteRollsBackOnValidationFailure() {
	inst := newInstitution(s, 0x03, models.RoleIssuer)
	s.Require().NoError(s.store.Create(s.ctx, inst))

	_, err := s.store.Execute(s.ctx, inst.Address,
		func(i *models.Institution) error { return sentinel.ErrInvalidState },
		func(i *models.Institution) { i.ApplyDeactivation(time.Now().UTC()) },
	)
	s.Require().Error(err)

	found, err := s.store.Find(s.ctx, inst.Address)
	s.Require().NoError(err)
	s.True(found.Active)
}

func (s *PostgresStoreSuite) TestSuperAdminPointerAndSwap() {
	admin := newInstitution(s, 0x04, models.RoleSuperAdmin)
	issuer := newInstitution(s, 0x05, models.RoleIssuer)
	s.Require().NoError(s.store.Create(s.ctx, admin))
	s.Require().NoError(s.store.Create(s.ctx, issuer))

	_, err := s.store.SuperAdmin(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.SetSuperAdmin(s.ctx, admin.Address))
	pointer, err := s.store.SuperAdmin(s.ctx)
	s.Require().NoError(err)
	s.Equal(admin.Address, pointer)

	now := time.Now().UTC()
	err = s.store.Swap(s.ctx, admin.Address, issuer.Address,
		func(cur, nxt *models.Institution) error { return nil },
		func(cur, nxt *models.Institution) {
			cur.ApplyRole(models.RoleIssuer, now)
			nxt.ApplyRole(models.RoleSuperAdmin, now)
		},
	)
	s.Require().NoError(err)

	pointer, err = s.store.SuperAdmin(s.ctx)
	s.Require().NoError(err)
	s.Equal(issuer.Address, pointer)

	old, err := s.store.Find(s.ctx, admin.Address)
	s.Require().NoError(err)
	s.Equal(models.RoleIssuer, old.Role)
}

func (s *PostgresStoreSuite) TestStatsRecount() {
	s.Require().NoError(s.store.Create(s.ctx, newInstitution(s, 0x06, models.RoleIssuer)))
	s.Require().NoError(s.store.Create(s.ctx, newInstitution(s, 0x07, models.RoleIssuer)))
	s.Require().NoError(s.store.Create(s.ctx, newInstitution(s, 0x08, models.RoleSuperAdmin)))

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, stats.TotalInstitutions)
	s.Equal(2, stats.ActiveIssuers)

	_, err = s.store.Execute(s.ctx, addr(0x06),
		func(i *models.Institution) error { return nil },
		func(i *models.Institution) { i.ApplyDeactivation(time.Now().UTC()) },
	)
	s.Require().NoError(err)

	stats, err = s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.ActiveIssuers)
}
