// Package httptransport composes the slice handlers into the process router.
// It owns only transport concerns; business logic stays in the services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credentry/internal/platform/metrics"
	"credentry/internal/platform/middleware"
	"credentry/pkg/platform/httputil"
)

// Registrar is anything that can attach its routes to the router. All slice
// handlers implement it.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router composes.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Handlers []Registrar

	// HealthChecks maps a dependency name to its probe.
	HealthChecks map[string]HealthCheck
}

// NewRouter wires the shared middleware chain, the slice routes, and the
// operational endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	for _, h := range deps.Handlers {
		h.Register(r)
	}

	r.Get("/healthz", handleHealthz(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type healthzResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp := healthzResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
