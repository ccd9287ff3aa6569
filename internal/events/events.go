// Package events defines the domain events emitted by the registries, one per
// successful mutation, plus the publisher and sinks that fan them out to
// observers and audit trails.
package events

import (
	"time"

	"github.com/google/uuid"

	"credentry/pkg/domain"
)

// Name identifies an event kind. Names are part of the external contract
// consumed by audit pipelines; never rename a shipped value.
type Name string

const (
	InstitutionRegistered   Name = "institution_registered"
	InstitutionUpdated      Name = "institution_updated"
	InstitutionStatusChange Name = "institution_status_changed"
	InstitutionRevoked      Name = "institution_revoked"
	SuperAdminTransferred   Name = "super_admin_transferred"
	CertificateIssued       Name = "certificate_issued"
	CertificateRevoked      Name = "certificate_revoked"
)

// Event is the transport-agnostic envelope for all registry events. Fields
// not meaningful for a given Name stay zero and are omitted on the wire.
// Keep it flat so stores and sinks can fan out without type switches.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Name      Name      `json:"name"`
	Timestamp time.Time `json:"timestamp"`

	// Actor is the caller whose mutation produced the event ("by").
	Actor string `json:"actor,omitempty"`

	// Institution event fields.
	Institution     string `json:"institution,omitempty"`
	InstitutionName string `json:"institution_name,omitempty"`
	Role            string `json:"role,omitempty"`
	PreviousRole    string `json:"previous_role,omitempty"`
	NewRole         string `json:"new_role,omitempty"`
	NewStatus       *bool  `json:"new_status,omitempty"`
	Reason          string `json:"reason,omitempty"`
	PreviousAdmin   string `json:"previous_admin,omitempty"`
	NewAdmin        string `json:"new_admin,omitempty"`

	// Certificate event fields.
	CertificateID *uint64 `json:"certificate_id,omitempty"`
	Issuer        string  `json:"issuer,omitempty"`
	Holder        string  `json:"holder,omitempty"`
	DocumentHash  string  `json:"document_hash,omitempty"`
	ContentRef    string  `json:"content_ref,omitempty"`

	// Request enrichment, populated by the publisher from context.
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Subject returns the address the event is about, for per-address listing.
// Certificate events index on the issuer.
func (e Event) Subject() string {
	if e.Institution != "" {
		return e.Institution
	}
	return e.Issuer
}

// NewInstitutionRegistered builds the event for a successful registration.
func NewInstitutionRegistered(addr domain.Address, name, role string, by domain.Address) Event {
	return Event{
		Name:            InstitutionRegistered,
		Institution:     addr.String(),
		InstitutionName: name,
		Role:            role,
		Actor:           by.String(),
	}
}

// NewInstitutionUpdated builds the event for a role change.
func NewInstitutionUpdated(addr domain.Address, name, previousRole, newRole string, by domain.Address) Event {
	return Event{
		Name:            InstitutionUpdated,
		Institution:     addr.String(),
		InstitutionName: name,
		PreviousRole:    previousRole,
		NewRole:         newRole,
		Actor:           by.String(),
	}
}

// NewInstitutionStatusChanged builds the event for an activation toggle.
func NewInstitutionStatusChanged(addr domain.Address, active bool, by domain.Address) Event {
	return Event{
		Name:        InstitutionStatusChange,
		Institution: addr.String(),
		NewStatus:   &active,
		Actor:       by.String(),
	}
}

// NewInstitutionRevoked builds the event for an issuer revocation.
func NewInstitutionRevoked(addr domain.Address, reason string, by domain.Address) Event {
	return Event{
		Name:        InstitutionRevoked,
		Institution: addr.String(),
		Reason:      reason,
		Actor:       by.String(),
	}
}

// NewSuperAdminTransferred builds the event for an admin handover. The
// incoming admin is the subject.
func NewSuperAdminTransferred(previous, next domain.Address) Event {
	return Event{
		Name:          SuperAdminTransferred,
		Institution:   next.String(),
		PreviousAdmin: previous.String(),
		NewAdmin:      next.String(),
		Actor:         previous.String(),
	}
}

// NewCertificateIssued builds the event for a successful issuance.
func NewCertificateIssued(id domain.CertificateID, issuer, holder domain.Address, hash domain.Hash256, contentRef string, issuedAt time.Time) Event {
	raw := uint64(id)
	return Event{
		Name:          CertificateIssued,
		CertificateID: &raw,
		Issuer:        issuer.String(),
		Holder:        holder.String(),
		DocumentHash:  hash.String(),
		ContentRef:    contentRef,
		Timestamp:     issuedAt,
		Actor:         issuer.String(),
	}
}

// NewCertificateRevoked builds the event for a certificate revocation.
func NewCertificateRevoked(id domain.CertificateID, issuer domain.Address, by domain.Address, revokedAt time.Time) Event {
	raw := uint64(id)
	return Event{
		Name:          CertificateRevoked,
		CertificateID: &raw,
		Issuer:        issuer.String(),
		Actor:         by.String(),
		Timestamp:     revokedAt,
	}
}
