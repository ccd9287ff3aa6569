// Package handler exposes the per-address event trail over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"credentry/internal/events"
	"credentry/pkg/domain"
	dErrors "credentry/pkg/domain-errors"
	"credentry/pkg/platform/httputil"
	"credentry/pkg/requestcontext"
)

const defaultLimit = 100

// Handler serves the event read API.
type Handler struct {
	logger *slog.Logger
	store  events.Store
}

// New creates a new events Handler.
func New(store events.Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register registers the event routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.handleList)
}

type listEventsResponse struct {
	Events []events.Event `json:"events"`
}

// handleList serves GET /events?address=0x…&limit=n, newest first.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, err := domain.ParseAddress(r.URL.Query().Get("address"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid events filter",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
	}

	list, err := h.store.ListBySubject(ctx, addr.String(), limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list events",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list events"))
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, listEventsResponse{Events: list})
}
