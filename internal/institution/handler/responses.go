package handler

import (
	"time"

	"credentry/internal/institution/models"
	"credentry/internal/ledger"
)

type institutionResponse struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Website      string    `json:"website,omitempty"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newInstitutionResponse(inst *models.Institution) institutionResponse {
	return institutionResponse{
		Address:      inst.Address.String(),
		Name:         inst.Name,
		Description:  inst.Description,
		Website:      inst.Website,
		Role:         string(inst.Role),
		Active:       inst.Active,
		RegisteredAt: inst.RegisteredAt,
		UpdatedAt:    inst.UpdatedAt,
	}
}

type confirmationResponse struct {
	ConfirmationID string    `json:"confirmation_id"`
	Operation      string    `json:"operation"`
	AppliedAt      time.Time `json:"applied_at"`
}

func newConfirmationResponse(conf ledger.Confirmation) confirmationResponse {
	return confirmationResponse{
		ConfirmationID: conf.ID.String(),
		Operation:      conf.Op,
		AppliedAt:      conf.AppliedAt,
	}
}

type registerInstitutionResponse struct {
	Institution  institutionResponse  `json:"institution"`
	Confirmation confirmationResponse `json:"confirmation"`
}

type statusResponse struct {
	Registered   bool `json:"registered"`
	CanIssue     bool `json:"can_issue"`
	IsSuperAdmin bool `json:"is_super_admin"`
	IsRevoked    bool `json:"is_revoked"`
}

type statsResponse struct {
	TotalInstitutions int `json:"total_institutions"`
	ActiveIssuers     int `json:"active_issuers"`
}

type listInstitutionsResponse struct {
	Institutions []institutionResponse `json:"institutions"`
}
