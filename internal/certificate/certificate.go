package certificate

import (
	"log/slog"

	"credentry/internal/certificate/handler"
	"credentry/internal/certificate/metrics"
	"credentry/internal/certificate/service"
	"credentry/internal/ledger"
	"credentry/internal/platform/middleware"
)

// Service exposes certificate issuance, revocation, and verification.
type Service = service.Service

// Handler wires HTTP endpoints to the certificate service.
type Handler = handler.Handler

// Metrics holds the slice's Prometheus instrumentation.
type Metrics = metrics.Metrics

// NewService constructs the certificate service with required dependencies.
func NewService(store service.Store, authz service.Authorizer, gate ledger.Gate, publisher service.EventPublisher, opts ...service.Option) *Service {
	return service.New(store, authz, gate, publisher, opts...)
}

// NewHandler constructs an HTTP handler for certificate registry routes.
func NewHandler(s *Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return handler.New(s, logger, validator)
}
