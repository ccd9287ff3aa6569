package handler

import (
	"time"

	"credentry/internal/certificate/models"
	"credentry/internal/ledger"
)

type certificateResponse struct {
	ID           uint64     `json:"id"`
	Issuer       string     `json:"issuer"`
	Holder       string     `json:"holder"`
	DocumentHash string     `json:"document_hash"`
	ContentRef   string     `json:"content_ref,omitempty"`
	Type         string     `json:"certificate_type,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	Revoked      bool       `json:"revoked"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

func newCertificateResponse(cert *models.Certificate) certificateResponse {
	return certificateResponse{
		ID:           uint64(cert.ID),
		Issuer:       cert.Issuer.String(),
		Holder:       cert.Holder.String(),
		DocumentHash: cert.DocumentHash.String(),
		ContentRef:   cert.ContentRef,
		Type:         cert.Type,
		IssuedAt:     cert.IssuedAt,
		Revoked:      cert.Revoked,
		RevokedAt:    cert.RevokedAt,
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

type issueCertificateResponse struct {
	Certificate  certificateResponse  `json:"certificate"`
	Confirmation confirmationResponse `json:"confirmation"`
}

type verificationResponse struct {
	CertificateID uint64 `json:"certificate_id"`
	Issuer        string `json:"issuer"`
	Holder        string `json:"holder"`
	HashMatch     bool   `json:"hash_match"`
	Revoked       bool   `json:"revoked"`
	Valid         bool   `json:"valid"`
}

func newVerificationResponse(v models.Verification) verificationResponse {
	return verificationResponse{
		CertificateID: uint64(v.CertificateID),
		Issuer:        v.Issuer.String(),
		Holder:        v.Holder.String(),
		HashMatch:     v.HashMatch,
		Revoked:       v.Revoked,
		Valid:         v.Valid,
	}
}

type listCertificatesResponse struct {
	Certificates []certificateResponse `json:"certificates"`
}

type statsResponse struct {
	TotalIssued  int `json:"total_issued"`
	TotalRevoked int `json:"total_revoked"`
}
