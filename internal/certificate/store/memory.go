// Package store provides the certificate persistence implementations.
package store

import (
	"context"
	"sync"

	"credentry/internal/certificate/models"
	"credentry/pkg/domain"
	"credentry/pkg/platform/sentinel"
)

// InMemory keeps the certificate log in an append-only slice indexed by ID.
// Mutations arrive pre-serialized through the ledger gate; the lock makes
// concurrent reads observe whole mutations, never partial ones.
type InMemory struct {
	mu       sync.RWMutex
	log      []*models.Certificate
	byHolder map[domain.Address][]domain.CertificateID
	byIssuer map[domain.Address][]domain.CertificateID
	revoked  int
}

func NewInMemory() *InMemory {
	return &InMemory{
		byHolder: make(map[domain.Address][]domain.CertificateID),
		byIssuer: make(map[domain.Address][]domain.CertificateID),
	}
}

// Append assigns the next sequential ID and stores the certificate. The
// assigned ID is written back to cert and returned.
func (s *InMemory) Append(_ context.Context, cert *models.Certificate) (domain.CertificateID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert.ID = domain.CertificateID(len(s.log))
	cp := *cert
	s.log = append(s.log, &cp)
	s.byHolder[cert.Holder] = append(s.byHolder[cert.Holder], cert.ID)
	s.byIssuer[cert.Issuer] = append(s.byIssuer[cert.Issuer], cert.ID)
	return cert.ID, nil
}

// Find returns a copy of the certificate, or sentinel.ErrNotFound.
func (s *InMemory) Find(_ context.Context, id domain.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.log) {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.log[id]
	return &cp, nil
}

// Execute atomically validates and mutates one certificate while holding the
// store lock, so the checked state is the mutated state.
func (s *InMemory) Execute(_ context.Context, id domain.CertificateID, validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(id) >= len(s.log) {
		return nil, sentinel.ErrNotFound
	}
	cert := s.log[id]
	if err := validate(cert); err != nil {
		return nil, err
	}
	wasRevoked := cert.Revoked
	mutate(cert)
	if !wasRevoked && cert.Revoked {
		s.revoked++
	}
	cp := *cert
	return &cp, nil
}

// ListByHolder returns copies of the holder's certificates in issuance order.
func (s *InMemory) ListByHolder(_ context.Context, holder domain.Address) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byHolder[holder]), nil
}

// ListByIssuer returns copies of the issuer's certificates in issuance order.
func (s *InMemory) ListByIssuer(_ context.Context, issuer domain.Address) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byIssuer[issuer]), nil
}

func (s *InMemory) collect(ids []domain.CertificateID) []*models.Certificate {
	out := make([]*models.Certificate, 0, len(ids))
	for _, id := range ids {
		cp := *s.log[id]
		out = append(out, &cp)
	}
	return out
}

// Stats returns the registry aggregates.
func (s *InMemory) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Stats{TotalIssued: len(s.log), TotalRevoked: s.revoked}, nil
}
