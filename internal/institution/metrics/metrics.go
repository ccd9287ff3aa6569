// Package metrics provides observability for the institution registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registration volume, governance actions, and the live
// issuer gauge.
type Metrics struct {
	InstitutionsRegistered prometheus.Counter
	IssuersRevoked         prometheus.Counter
	AdminTransfers         prometheus.Counter
	ActiveIssuers          prometheus.Gauge
	RegisterDuration       prometheus.Histogram
}

// New creates and registers all institution registry metrics.
func New() *Metrics {
	return &Metrics{
		InstitutionsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentry_institutions_registered_total",
			Help: "Total number of institutions registered",
		}),
		IssuersRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentry_issuers_revoked_total",
			Help: "Total number of issuer revocations",
		}),
		AdminTransfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentry_admin_transfers_total",
			Help: "Total number of super admin transfers",
		}),
		ActiveIssuers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "credentry_active_issuers",
			Help: "Current number of active issuers",
		}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credentry_institution_register_duration_seconds",
			Help:    "Duration of institution registration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveRegister records the duration of a registration.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
