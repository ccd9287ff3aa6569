package institution

import (
	"log/slog"

	"credentry/internal/institution/handler"
	"credentry/internal/institution/metrics"
	"credentry/internal/institution/service"
	"credentry/internal/ledger"
	"credentry/internal/platform/middleware"
)

// Service exposes institution governance orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the institution service.
type Handler = handler.Handler

// Metrics holds the slice's Prometheus instrumentation.
type Metrics = metrics.Metrics

// NewService constructs the institution service with required dependencies.
func NewService(store service.Store, gate ledger.Gate, publisher service.EventPublisher, opts ...service.Option) *Service {
	return service.New(store, gate, publisher, opts...)
}

// NewHandler constructs an HTTP handler for institution registry routes.
func NewHandler(s *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return handler.New(s, logger, validator)
}
