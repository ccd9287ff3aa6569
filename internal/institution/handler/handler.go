// Package handler exposes the institution registry over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credentry/internal/institution/models"
	"credentry/internal/institution/service"
	"credentry/internal/ledger"
	"credentry/internal/platform/middleware"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/platform/httputil"
	"credentry/pkg/requestcontext"
)

// Service defines the institution operations the handler depends on.
type Service interface {
	Register(ctx context.Context, caller domain.Address, params service.RegisterParams) (*models.Institution, ledger.Confirmation, error)
	Revoke(ctx context.Context, caller, target domain.Address, reason string) (ledger.Confirmation, error)
	Reactivate(ctx context.Context, caller, target domain.Address) (ledger.Confirmation, error)
	UpdateRole(ctx context.Context, caller, target domain.Address, newRole models.Role) (ledger.Confirmation, error)
	SetActive(ctx context.Context, caller, target domain.Address, active bool) (ledger.Confirmation, error)
	TransferSuperAdmin(ctx context.Context, caller, next domain.Address) (ledger.Confirmation, error)
	Get(ctx context.Context, addr domain.Address) (*models.Institution, error)
	List(ctx context.Context) ([]*models.Institution, error)
	Stats(ctx context.Context) (models.Stats, error)
	CanIssue(ctx context.Context, addr domain.Address) (bool, error)
	IsSuperAdmin(ctx context.Context, addr domain.Address) (bool, error)
	IsRevoked(ctx context.Context, addr domain.Address) (bool, error)
}

// Handler handles institution registry endpoints.
type Handler struct {
	logger    *slog.Logger
	svc       Service
	validator middleware.TokenValidator
}

// New creates a new institution Handler.
func New(svc Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		svc:       svc,
		validator: validator,
	}
}

// Register registers the institution routes with the chi router. Reads are
// public; mutations require an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/institutions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/stats", h.handleStats)
		r.Get("/{address}", h.handleGet)
		r.Get("/{address}/status", h.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(middleware.RequireCaller(h.validator, h.logger))
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/", h.handleRegister)
			r.Post("/transfer-admin", h.handleTransferAdmin)
			r.Post("/{address}/revoke", h.handleRevoke)
			r.Post("/{address}/reactivate", h.handleReactivate)
			r.Patch("/{address}/role", h.handleUpdateRole)
			r.Patch("/{address}/status", h.handleSetStatus)
		})
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerInstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	params, err := req.Parse()
	if err != nil {
		h.warn(ctx, "invalid register institution request", err)
		httputil.WriteError(w, err)
		return
	}

	inst, conf, err := h.svc.Register(ctx, requestcontext.Caller(ctx), params)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to register institution", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, registerInstitutionResponse{
		Institution:  newInstitutionResponse(inst),
		Confirmation: newConfirmationResponse(conf),
	})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, ok := h.pathAddress(w, r)
	if !ok {
		return
	}

	var req revokeInstitutionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	conf, err := h.svc.Revoke(ctx, requestcontext.Caller(ctx), target, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to revoke institution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newConfirmationResponse(conf))
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, ok := h.pathAddress(w, r)
	if !ok {
		return
	}

	conf, err := h.svc.Reactivate(ctx, requestcontext.Caller(ctx), target)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to reactivate institution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newConfirmationResponse(conf))
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, ok := h.pathAddress(w, r)
	if !ok {
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, err := req.Parse()
	if err != nil {
		h.warn(ctx, "invalid update role request", err)
		httputil.WriteError(w, err)
		return
	}

	conf, err := h.svc.UpdateRole(ctx, requestcontext.Caller(ctx), target, role)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update institution role", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newConfirmationResponse(conf))
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target, ok := h.pathAddress(w, r)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		h.warn(ctx, "invalid set status request", err)
		httputil.WriteError(w, err)
		return
	}

	conf, err := h.svc.SetActive(ctx, requestcontext.Caller(ctx), target, *req.Active)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to set institution status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newConfirmationResponse(conf))
}

func (h *Handler) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transferAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	next, err := req.Parse()
	if err != nil {
		h.warn(ctx, "invalid transfer admin request", err)
		httputil.WriteError(w, err)
		return
	}

	conf, err := h.svc.TransferSuperAdmin(ctx, requestcontext.Caller(ctx), next)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to transfer super admin", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newConfirmationResponse(conf))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}

	inst, err := h.svc.Get(ctx, addr)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load institution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newInstitutionResponse(inst))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := h.pathAddress(w, r)
	if !ok {
		return
	}

	resp := statusResponse{Registered: true}
	if _, err := h.svc.Get(ctx, addr); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.writeServiceError(ctx, w, "failed to load institution", err)
			return
		}
		resp.Registered = false
	}

	var err error
	if resp.CanIssue, err = h.svc.CanIssue(ctx, addr); err != nil {
		h.writeServiceError(ctx, w, "failed to load institution status", err)
		return
	}
	if resp.IsSuperAdmin, err = h.svc.IsSuperAdmin(ctx, addr); err != nil {
		h.writeServiceError(ctx, w, "failed to load institution status", err)
		return
	}
	if resp.IsRevoked, err = h.svc.IsRevoked(ctx, addr); err != nil {
		h.writeServiceError(ctx, w, "failed to load institution status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.svc.List(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list institutions", err)
		return
	}
	resp := listInstitutionsResponse{Institutions: make([]institutionResponse, 0, len(list))}
	for _, inst := range list {
		resp.Institutions = append(resp.Institutions, newInstitutionResponse(inst))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load institution stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statsResponse{
		TotalInstitutions: stats.TotalInstitutions,
		ActiveIssuers:     stats.ActiveIssuers,
	})
}

func (h *Handler) pathAddress(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.warn(r.Context(), "invalid address in path", err)
		httputil.WriteError(w, err)
		return domain.ZeroAddress, false
	}
	return addr, true
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}

// writeServiceError logs at a severity matching the error class and writes
// the mapped HTTP response. Internal errors are not echoed to the client.
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
