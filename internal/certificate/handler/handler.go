// Package handler exposes the certificate registry over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"credentry/internal/certificate/models"
	"credentry/internal/certificate/service"
	"credentry/internal/ledger"
	"credentry/internal/platform/middleware"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/platform/httputil"
	"credentry/pkg/requestcontext"
)

// Service defines the certificate operations the handler depends on.
type Service interface {
	Issue(ctx context.Context, caller domain.Address, params service.IssueParams) (*models.Certificate, ledger.Confirmation, error)
	Revoke(ctx context.Context, caller domain.Address, id domain.CertificateID) (ledger.Confirmation, error)
	Verify(ctx context.Context, id domain.CertificateID, hash domain.Hash256) (models.Verification, error)
	Get(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	ListByHolder(ctx context.Context, holder domain.Address) ([]*models.Certificate, error)
	ListByIssuer(ctx context.Context, issuer domain.Address) ([]*models.Certificate, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Handler handles certificate registry endpoints.
type Handler struct {
	logger    *slog.Logger
	svc       Service
	validator middleware.TokenValidator
}

// New creates a new certificate Handler.
func New(svc Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		svc:       svc,
		validator: validator,
	}
}

// Register registers the certificate routes with the chi router.
// Verification and reads are public; issuance and revocation require an
// authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/certificates", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/stats", h.handleStats)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/verify", h.handleVerify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(middleware.RequireCaller(h.validator, h.logger))
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/", h.handleIssue)
			r.Post("/{id}/revoke", h.handleRevoke)
		})
	})
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	params, err := req.Parse()
	if err != nil {
		h.warn(ctx, "invalid issue certificate request", err)
		httputil.WriteError(w, err)
		return
	}

	cert, conf, err := h.svc.Issue(ctx, requestcontext.Caller(ctx), params)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to issue certificate", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, issueCertificateResponse{
		Certificate:  newCertificateResponse(cert),
		Confirmation: newConfirmationResponse(conf),
	})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	conf, err := h.svc.Revoke(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to revoke certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newConfirmationResponse(conf))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	hash, err := domain.ParseHash256(r.URL.Query().Get("hash"))
	if err != nil {
		h.warn(ctx, "invalid verification hash", err)
		httputil.WriteError(w, err)
		return
	}

	verification, err := h.svc.Verify(ctx, id, hash)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to verify certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newVerificationResponse(verification))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	cert, err := h.svc.Get(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newCertificateResponse(cert))
}

// handleList serves GET /certificates?holder=0x…|issuer=0x…. Exactly one
// filter must be given; an unfiltered dump of the registry is not offered.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holderParam := r.URL.Query().Get("holder")
	issuerParam := r.URL.Query().Get("issuer")

	var (
		list []*models.Certificate
		err  error
	)
	switch {
	case holderParam != "" && issuerParam != "":
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "filter by holder or issuer, not both"))
		return
	case holderParam != "":
		var holder domain.Address
		if holder, err = domain.ParseAddress(holderParam); err == nil {
			list, err = h.svc.ListByHolder(ctx, holder)
		}
	case issuerParam != "":
		var issuer domain.Address
		if issuer, err = domain.ParseAddress(issuerParam); err == nil {
			list, err = h.svc.ListByIssuer(ctx, issuer)
		}
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "holder or issuer filter must be provided"))
		return
	}
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list certificates", err)
		return
	}

	resp := listCertificatesResponse{Certificates: make([]certificateResponse, 0, len(list))}
	for _, cert := range list {
		resp.Certificates = append(resp.Certificates, newCertificateResponse(cert))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load certificate stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statsResponse{
		TotalIssued:  stats.TotalIssued,
		TotalRevoked: stats.TotalRevoked,
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (domain.CertificateID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.warn(r.Context(), "invalid certificate id in path", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "certificate id must be a non-negative integer"))
		return 0, false
	}
	return domain.CertificateID(id), true
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	h.warn(ctx, msg, err)
	httputil.WriteError(w, err)
}
