package handler

import (
	"strings"

	"credentry/internal/institution/models"
	"credentry/internal/institution/service"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
)

// registerInstitutionRequest is the POST /institutions body.
type registerInstitutionRequest struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
	Role        string `json:"role"`
}

func (r registerInstitutionRequest) Parse() (service.RegisterParams, error) {
	addr, err := domain.ParseAddress(r.Address)
	if err != nil {
		return service.RegisterParams{}, err
	}
	role, err := models.ParseRole(r.Role)
	if err != nil {
		return service.RegisterParams{}, err
	}
	if strings.TrimSpace(r.Name) == "" {
		return service.RegisterParams{}, dErrors.New(dErrors.CodeValidation, "name must not be empty")
	}
	return service.RegisterParams{
		Address:     addr,
		Name:        r.Name,
		Description: r.Description,
		Website:     r.Website,
		Role:        role,
	}, nil
}

// revokeInstitutionRequest is the POST /institutions/{address}/revoke body.
type revokeInstitutionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// updateRoleRequest is the PATCH /institutions/{address}/role body.
type updateRoleRequest struct {
	Role string `json:"role"`
}

func (r updateRoleRequest) Parse() (models.Role, error) {
	return models.ParseRole(r.Role)
}

// setStatusRequest is the PATCH /institutions/{address}/status body. Active
// is a pointer so a missing field is distinguishable from false.
type setStatusRequest struct {
	Active *bool `json:"active"`
}

func (r setStatusRequest) Validate() error {
	if r.Active == nil {
		return dErrors.New(dErrors.CodeValidation, "active must be provided")
	}
	return nil
}

// transferAdminRequest is the POST /institutions/transfer-admin body.
type transferAdminRequest struct {
	NewAdmin string `json:"new_admin"`
}

func (r transferAdminRequest) Parse() (domain.Address, error) {
	return domain.ParseAddress(r.NewAdmin)
}
