// Package models holds the institution aggregate and its transition guards.
package models

import (
	"time"

	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
)

// Role is the capability tier of a registered institution. Absence of a
// registry record is "unregistered"; there is no sentinel role for it.
type Role string

const (
	// RoleIssuer may create certificates while active.
	RoleIssuer Role = "issuer"
	// RoleSuperAdmin governs the registry. Exactly one institution holds it.
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole validates a textual role from the boundary.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleIssuer:
		return RoleIssuer, nil
	case RoleSuperAdmin:
		return RoleSuperAdmin, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "role must be issuer or super_admin")
	}
}

// maxNameLength bounds the descriptive name at the boundary.
const maxNameLength = 128

// Institution is the aggregate for a registered participant.
//
// Invariants:
//   - Address is the unique key and never reassigned
//   - Name is non-empty and at most 128 characters
//   - Active toggles independently of Role; the super admin is always active
//   - Registration is permanent: there is no transition back to unregistered
//
// Role changes go only through the role/transfer paths so the one-super-admin
// invariant is enforced at a single point (the registry service).
type Institution struct {
	Address      domain.Address `json:"address"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Website      string         `json:"website,omitempty"`
	Role         Role           `json:"role"`
	Active       bool           `json:"active"`
	RegisteredAt time.Time      `json:"registered_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewInstitution constructs a registered institution, active from creation.
func NewInstitution(addr domain.Address, name, description, website string, role Role, now time.Time) (*Institution, error) {
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution address cannot be zero")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name cannot be empty")
	}
	if len(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name must be 128 characters or less")
	}
	if role != RoleIssuer && role != RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution role must be issuer or super_admin")
	}
	return &Institution{
		Address:      addr,
		Name:         name,
		Description:  description,
		Website:      website,
		Role:         role,
		Active:       true,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// CanIssue reports whether the institution may create certificates right now.
func (i *Institution) CanIssue() bool {
	return i.Role == RoleIssuer && i.Active
}

// IsRevoked reports whether the institution has been deactivated.
func (i *Institution) IsRevoked() bool {
	return !i.Active
}

// CanDeactivate checks the transition to inactive. Super admin accounts are
// never deactivated through status paths.
func (i *Institution) CanDeactivate() error {
	if i.Role == RoleSuperAdmin {
		return dErrors.New(dErrors.CodeForbidden, "super admin cannot be deactivated")
	}
	if !i.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "institution is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions to inactive. Call CanDeactivate first.
func (i *Institution) ApplyDeactivation(now time.Time) {
	i.Active = false
	i.UpdatedAt = now
}

// CanReactivate checks the transition back to active.
func (i *Institution) CanReactivate() error {
	if i.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "institution is already active")
	}
	return nil
}

// ApplyReactivation transitions to active. Call CanReactivate first.
func (i *Institution) ApplyReactivation(now time.Time) {
	i.Active = true
	i.UpdatedAt = now
}

// ApplyRole records a role change.
func (i *Institution) ApplyRole(role Role, now time.Time) {
	i.Role = role
	i.UpdatedAt = now
}

// Stats are the derived registry aggregates. They must always equal the
// corresponding predicate counts over the institution set.
type Stats struct {
	TotalInstitutions int `json:"total_institutions"`
	ActiveIssuers     int `json:"active_issuers"`
}
