package handler

import (
	"encoding/base64"

	"credentry/internal/certificate/service"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
)

// issueCertificateRequest is the POST /certificates body. Callers submit
// either the pre-computed document hash, or the document itself (base64),
// or both; when both are present they must agree.
type issueCertificateRequest struct {
	Holder       string `json:"holder"`
	DocumentHash string `json:"document_hash,omitempty"`
	Content      string `json:"content,omitempty"`
	ContentRef   string `json:"content_ref,omitempty"`
	Type         string `json:"certificate_type,omitempty"`
}

func (r issueCertificateRequest) Parse() (service.IssueParams, error) {
	holder, err := domain.ParseAddress(r.Holder)
	if err != nil {
		return service.IssueParams{}, err
	}
	params := service.IssueParams{Holder: holder, ContentRef: r.ContentRef, Type: r.Type}

	if r.DocumentHash != "" {
		if params.DocumentHash, err = domain.ParseHash256(r.DocumentHash); err != nil {
			return service.IssueParams{}, err
		}
	}
	if r.Content != "" {
		if params.Content, err = base64.StdEncoding.DecodeString(r.Content); err != nil {
			return service.IssueParams{}, dErrors.New(dErrors.CodeValidation, "content must be base64 encoded")
		}
	}
	if r.DocumentHash == "" && r.Content == "" {
		return service.IssueParams{}, dErrors.New(dErrors.CodeValidation, "document_hash or content must be provided")
	}
	return params, nil
}
