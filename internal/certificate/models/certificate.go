// Package models holds the certificate aggregate and its lifecycle guards.
package models

import (
	"time"

	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
)

// Certificate is an append-only credential record.
//
// Invariants:
//   - IDs are assigned sequentially from zero and never reused.
//   - Revocation is one-way: a revoked certificate never becomes valid again.
//   - All fields except the revocation pair are immutable after issuance.
type Certificate struct {
	ID           domain.CertificateID
	Issuer       domain.Address
	Holder       domain.Address
	DocumentHash domain.Hash256
	ContentRef   string
	Type         string
	IssuedAt     time.Time
	Revoked      bool
	RevokedAt    *time.Time
}

// NewCertificate validates the immutable fields at issuance time. Type is a
// free-form label ("Bachelor", "Transcript") and may be empty. The store
// assigns the ID.
func NewCertificate(issuer, holder domain.Address, hash domain.Hash256, contentRef, certType string, now time.Time) (*Certificate, error) {
	if issuer.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "issuer address must not be zero")
	}
	if holder.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "holder address must not be zero")
	}
	if holder == issuer {
		return nil, dErrors.New(dErrors.CodeValidation, "holder must differ from the issuer")
	}
	if hash == (domain.Hash256{}) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document hash must not be zero")
	}
	return &Certificate{
		Issuer:       issuer,
		Holder:       holder,
		DocumentHash: hash,
		ContentRef:   contentRef,
		Type:         certType,
		IssuedAt:     now,
	}, nil
}

// CanRevoke checks the revocation guard. The original issuer keeps revocation
// rights over its own certificates even after being deactivated; the current
// super admin may revoke any certificate.
func (c *Certificate) CanRevoke(by domain.Address, isSuperAdmin bool) error {
	if by != c.Issuer && !isSuperAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the issuing institution or the super admin can revoke")
	}
	if c.Revoked {
		return dErrors.New(dErrors.CodeConflict, "certificate is already revoked")
	}
	return nil
}

// ApplyRevocation marks the certificate revoked. Call only after CanRevoke.
func (c *Certificate) ApplyRevocation(now time.Time) {
	c.Revoked = true
	c.RevokedAt = &now
}

// Matches reports whether the presented hash equals the recorded one.
func (c *Certificate) Matches(hash domain.Hash256) bool {
	return c.DocumentHash == hash
}

// Verification is the outcome of checking a presented document hash against
// a certificate. Valid holds exactly when the hash matches and the
// certificate is not revoked; the issuer's current standing does not factor
// in. Callers who want "issuer still authorized" must ask the institution
// registry themselves.
type Verification struct {
	CertificateID domain.CertificateID
	Issuer        domain.Address
	Holder        domain.Address
	HashMatch     bool
	Revoked       bool
	Valid         bool
}

// Verify evaluates a presented hash against the certificate.
func (c *Certificate) Verify(hash domain.Hash256) Verification {
	v := Verification{
		CertificateID: c.ID,
		Issuer:        c.Issuer,
		Holder:        c.Holder,
		HashMatch:     c.Matches(hash),
		Revoked:       c.Revoked,
	}
	v.Valid = v.HashMatch && !v.Revoked
	return v
}

// VerifySnapshot is the cacheable subset of a non-revoked certificate needed
// to answer verifications without a store read.
type VerifySnapshot struct {
	Issuer       domain.Address `json:"issuer"`
	Holder       domain.Address `json:"holder"`
	DocumentHash domain.Hash256 `json:"document_hash"`
}

// Snapshot extracts the cacheable verification fields.
func (c *Certificate) Snapshot() VerifySnapshot {
	return VerifySnapshot{
		Issuer:       c.Issuer,
		Holder:       c.Holder,
		DocumentHash: c.DocumentHash,
	}
}

// Verify evaluates a presented hash against a cached snapshot. Snapshots are
// only ever taken of non-revoked certificates.
func (s VerifySnapshot) Verify(id domain.CertificateID, hash domain.Hash256) Verification {
	match := s.DocumentHash == hash
	return Verification{
		CertificateID: id,
		Issuer:        s.Issuer,
		Holder:        s.Holder,
		HashMatch:     match,
		Valid:         match,
	}
}

// Stats aggregates the certificate registry.
type Stats struct {
	TotalIssued  int
	TotalRevoked int
}
