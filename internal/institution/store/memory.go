// Package store provides the institution persistence implementations.
package store

import (
	"context"
	"sync"

	"credentry/internal/institution/models"
	"credentry/pkg/domain"
	"credentry/pkg/platform/sentinel"
)

// InMemory keeps the institution set in a map guarded by a RWMutex. Mutations
// arrive pre-serialized through the ledger gate; the lock makes concurrent
// reads observe whole mutations, never partial ones.
type InMemory struct {
	mu           sync.RWMutex
	institutions map[domain.Address]*models.Institution
	order        []domain.Address
	superAdmin   domain.Address
	stats        models.Stats
}

func NewInMemory() *InMemory {
	return &InMemory{institutions: make(map[domain.Address]*models.Institution)}
}

// Create registers a new institution. Returns sentinel.ErrConflict when the
// address already has a record.
func (s *InMemory) Create(_ context.Context, inst *models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.institutions[inst.Address]; exists {
		return sentinel.ErrConflict
	}
	cp := *inst
	s.institutions[inst.Address] = &cp
	s.order = append(s.order, inst.Address)
	s.stats.TotalInstitutions++
	if cp.CanIssue() {
		s.stats.ActiveIssuers++
	}
	return nil
}

// Find returns a copy of the institution, or sentinel.ErrNotFound.
func (s *InMemory) Find(_ context.Context, addr domain.Address) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.institutions[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

// Execute atomically validates and mutates one institution while holding the
// store lock, so the checked state is the mutated state.
func (s *InMemory) Execute(_ context.Context, addr domain.Address, validate func(*models.Institution) error, mutate func(*models.Institution)) (*models.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.institutions[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(inst); err != nil {
		return nil, err
	}
	wasIssuing := inst.CanIssue()
	mutate(inst)
	s.adjustIssuerCount(wasIssuing, inst.CanIssue())
	cp := *inst
	return &cp, nil
}

// Swap atomically validates and mutates two institutions (the super-admin
// handover) and moves the super-admin pointer to next. Readers never observe
// the half-swapped state.
func (s *InMemory) Swap(_ context.Context, current, next domain.Address, validate func(cur, nxt *models.Institution) error, mutate func(cur, nxt *models.Institution)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.institutions[current]
	if !ok {
		return sentinel.ErrNotFound
	}
	nxt, ok := s.institutions[next]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := validate(cur, nxt); err != nil {
		return err
	}
	curWasIssuing, nxtWasIssuing := cur.CanIssue(), nxt.CanIssue()
	mutate(cur, nxt)
	s.adjustIssuerCount(curWasIssuing, cur.CanIssue())
	s.adjustIssuerCount(nxtWasIssuing, nxt.CanIssue())
	s.superAdmin = next
	return nil
}

// SuperAdmin returns the registry's super-admin pointer.
func (s *InMemory) SuperAdmin(_ context.Context) (domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.superAdmin.IsZero() {
		return domain.ZeroAddress, sentinel.ErrNotFound
	}
	return s.superAdmin, nil
}

// SetSuperAdmin installs the genesis super-admin pointer. Later moves happen
// only through Swap.
func (s *InMemory) SetSuperAdmin(_ context.Context, addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.institutions[addr]; !ok {
		return sentinel.ErrNotFound
	}
	s.superAdmin = addr
	return nil
}

// List returns copies of all institutions in registration order.
func (s *InMemory) List(_ context.Context) ([]*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Institution, 0, len(s.order))
	for _, addr := range s.order {
		cp := *s.institutions[addr]
		out = append(out, &cp)
	}
	return out, nil
}

// Stats returns the cached aggregates, maintained on every mutation.
func (s *InMemory) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *InMemory) adjustIssuerCount(was, is bool) {
	switch {
	case !was && is:
		s.stats.ActiveIssuers++
	case was && !is:
		s.stats.ActiveIssuers--
	}
}
