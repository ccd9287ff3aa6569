package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credentry/internal/institution/models"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/platform/sentinel"
)

type InstitutionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *InstitutionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestInstitutionStoreSuite(t *testing.T) {
	suite.Run(t, new(InstitutionStoreSuite))
}

func (s *InstitutionStoreSuite) addr(last byte) domain.Address {
	var a domain.Address
	a[19] = last
	a[0] = 0x01
	return a
}

func (s *InstitutionStoreSuite) newInstitution(last byte, role models.Role) *models.Institution {
	inst, err := models.NewInstitution(s.addr(last), "Institution", "", "", role, s.now)
	s.Require().NoError(err)
	return inst
}

// TestCreationAndLookups verifies the store correctly creates and retrieves
// institutions.
func (s *InstitutionStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds institution by address", func() {
		inst := s.newInstitution(0x01, models.RoleIssuer)
		s.Require().NoError(s.store.Create(s.ctx, inst))

		found, err := s.store.Find(s.ctx, inst.Address)
		s.Require().NoError(err)
		s.Equal(inst.Name, found.Name)
		s.Equal(models.RoleIssuer, found.Role)
	})

	s.Run("returns ErrNotFound for unknown address", func() {
		_, err := s.store.Find(s.ctx, s.addr(0xFF))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate address", func() {
		inst := s.newInstitution(0x02, models.RoleIssuer)
		s.Require().NoError(s.store.Create(s.ctx, inst))

		dup := s.newInstitution(0x02, models.RoleIssuer)
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("find returns a copy", func() {
		inst := s.newInstitution(0x03, models.RoleIssuer)
		s.Require().NoError(s.store.Create(s.ctx, inst))

		found, err := s.store.Find(s.ctx, inst.Address)
		s.Require().NoError(err)
		found.Name = "mutated"

		again, err := s.store.Find(s.ctx, inst.Address)
		s.Require().NoError(err)
		s.Equal("Institution", again.Name)
	})
}

// TestExecute verifies validate-then-mutate under one lock.
func (s *InstitutionStoreSuite) TestExecute() {
	s.Run("applies mutation after validation passes", func() {
		inst := s.newInstitution(0x10, models.RoleIssuer)
		s.Require().NoError(s.store.Create(s.ctx, inst))

		updated, err := s.store.Execute(s.ctx, inst.Address,
			func(i *models.Institution) error { return nil },
			func(i *models.Institution) { i.ApplyDeactivation(s.now.Add(time.Hour)) },
		)
		s.Require().NoError(err)
		s.False(updated.Active)

		found, err := s.store.Find(s.ctx, inst.Address)
		s.Require().NoError(err)
		s.False(found.Active)
	})

	s.Run("leaves state untouched when validation fails", func() {
		inst := s.newInstitution(0x11, models.RoleIssuer)
		s.Require().NoError(s.store.Create(s.ctx, inst))

		_, err := s.store.Execute(s.ctx, inst.Address,
			func(i *models.Institution) error {
				return dErrors.New(dErrors.CodeConflict, "no")
			},
			func(i *models.Institution) { i.ApplyDeactivation(s.now) },
		)
		s.Require().Error(err)

		found, findErr := s.store.Find(s.ctx, inst.Address)
		s.Require().NoError(findErr)
		s.True(found.Active)
	})

	s.Run("returns ErrNotFound for unknown address", func() {
		_, err := s.store.Execute(s.ctx, s.addr(0xFE),
			func(i *models.Institution) error { return nil },
			func(i *models.Institution) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestStats verifies the cached counters track status and role transitions.
func (s *InstitutionStoreSuite) TestStats() {
	s.Run("counts registrations and active issuers", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newInstitution(0x20, models.RoleIssuer)))
		s.Require().NoError(s.store.Create(s.ctx, s.newInstitution(0x21, models.RoleIssuer)))
		s.Require().NoError(s.store.Create(s.ctx, s.newInstitution(0x22, models.RoleSuperAdmin)))

		stats, err := s.store.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, stats.TotalInstitutions)
		s.Equal(2, stats.ActiveIssuers)
	})

	s.Run("deactivation and reactivation adjust the issuer count", func() {
		addr := s.addr(0x20)
		_, err := s.store.Execute(s.ctx, addr,
			func(i *models.Institution) error { return nil },
			func(i *models.Institution) { i.ApplyDeactivation(s.now) },
		)
		s.Require().NoError(err)

		stats, err := s.store.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, stats.ActiveIssuers)

		_, err = s.store.Execute(s.ctx, addr,
			func(i *models.Institution) error { return nil },
			func(i *models.Institution) { i.ApplyReactivation(s.now) },
		)
		s.Require().NoError(err)

		stats, err = s.store.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, stats.ActiveIssuers)
	})
}

// TestSuperAdminPointer verifies pointer management and the two-key swap.
func (s *InstitutionStoreSuite) TestSuperAdminPointer() {
	s.Run("empty store has no super admin", func() {
		_, err := s.store.SuperAdmin(s.ctx)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("set and read back", func() {
		admin := s.newInstitution(0x30, models.RoleSuperAdmin)
		s.Require().NoError(s.store.Create(s.ctx, admin))
		s.Require().NoError(s.store.SetSuperAdmin(s.ctx, admin.Address))

		got, err := s.store.SuperAdmin(s.ctx)
		s.Require().NoError(err)
		s.Equal(admin.Address, got)
	})

	s.Run("swap moves roles and pointer atomically", func() {
		admin := s.addr(0x30)
		issuer := s.newInstitution(0x31, models.RoleIssuer)
		s.Require().NoError(s.store.Create(s.ctx, issuer))

		err := s.store.Swap(s.ctx, admin, issuer.Address,
			func(cur, nxt *models.Institution) error { return nil },
			func(cur, nxt *models.Institution) {
				cur.ApplyRole(models.RoleIssuer, s.now)
				nxt.ApplyRole(models.RoleSuperAdmin, s.now)
			},
		)
		s.Require().NoError(err)

		got, err := s.store.SuperAdmin(s.ctx)
		s.Require().NoError(err)
		s.Equal(issuer.Address, got)

		old, err := s.store.Find(s.ctx, admin)
		s.Require().NoError(err)
		s.Equal(models.RoleIssuer, old.Role)

		neu, err := s.store.Find(s.ctx, issuer.Address)
		s.Require().NoError(err)
		s.Equal(models.RoleSuperAdmin, neu.Role)
	})

	s.Run("failed swap validation changes nothing", func() {
		current := s.addr(0x31)
		other := s.newInstitution(0x32, models.RoleIssuer)
		s.Require().NoError(s.store.Create(s.ctx, other))

		err := s.store.Swap(s.ctx, current, other.Address,
			func(cur, nxt *models.Institution) error {
				return dErrors.New(dErrors.CodeConflict, "no")
			},
			func(cur, nxt *models.Institution) {
				cur.ApplyRole(models.RoleIssuer, s.now)
				nxt.ApplyRole(models.RoleSuperAdmin, s.now)
			},
		)
		s.Require().Error(err)

		got, err := s.store.SuperAdmin(s.ctx)
		s.Require().NoError(err)
		s.Equal(current, got)
	})
}

// TestSeedGenesisAdmin verifies idempotent bootstrap.
func (s *InstitutionStoreSuite) TestSeedGenesisAdmin() {
	addr := s.addr(0x40)

	admin, err := SeedGenesisAdmin(s.ctx, s.store, addr, "Registry Operator")
	s.Require().NoError(err)
	s.Equal(models.RoleSuperAdmin, admin.Role)
	s.True(admin.Active)

	again, err := SeedGenesisAdmin(s.ctx, s.store, s.addr(0x41), "Someone Else")
	s.Require().NoError(err)
	s.Equal(addr, again.Address, "second seed must not replace the admin")

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.TotalInstitutions)
}

// TestList verifies registration order is preserved.
func (s *InstitutionStoreSuite) TestList() {
	for _, b := range []byte{0x50, 0x51, 0x52} {
		s.Require().NoError(s.store.Create(s.ctx, s.newInstitution(b, models.RoleIssuer)))
	}
	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(s.addr(0x50), list[0].Address)
	s.Equal(s.addr(0x52), list[2].Address)
}
