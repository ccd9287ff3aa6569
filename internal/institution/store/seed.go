package store

import (
	"context"
	"errors"
	"time"

	"credentry/internal/institution/models"
	"credentry/pkg/domain"
	"credentry/pkg/platform/sentinel"
)

// Seeder is the subset of the store needed to install the genesis admin.
type Seeder interface {
	Create(ctx context.Context, inst *models.Institution) error
	Find(ctx context.Context, addr domain.Address) (*models.Institution, error)
	SuperAdmin(ctx context.Context) (domain.Address, error)
	SetSuperAdmin(ctx context.Context, addr domain.Address) error
}

// SeedGenesisAdmin installs the initial super admin. Idempotent: when a
// super-admin pointer already exists the store is left untouched, so restarts
// never mint a second admin.
func SeedGenesisAdmin(ctx context.Context, s Seeder, addr domain.Address, name string) (*models.Institution, error) {
	if existing, err := s.SuperAdmin(ctx); err == nil {
		return s.Find(ctx, existing)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	admin, err := models.NewInstitution(addr, name, "genesis super admin", "", models.RoleSuperAdmin, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.Create(ctx, admin); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return nil, err
	}
	if err := s.SetSuperAdmin(ctx, addr); err != nil {
		return nil, err
	}
	return admin, nil
}
