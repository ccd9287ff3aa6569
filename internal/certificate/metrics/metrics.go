// Package metrics holds the certificate slice's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the certificate registry metrics.
type Metrics struct {
	CertificatesIssued  prometheus.Counter
	CertificatesRevoked prometheus.Counter
	Verifications       *prometheus.CounterVec
	VerifyCacheHits     prometheus.Counter
	VerifyCacheMisses   prometheus.Counter
}

// New creates and registers the metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentry_certificates_issued_total",
			Help: "Total certificates issued.",
		}),
		CertificatesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentry_certificates_revoked_total",
			Help: "Total certificates revoked.",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentry_certificate_verifications_total",
			Help: "Verification requests by outcome.",
		}, []string{"outcome"}),
		VerifyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentry_verify_cache_hits_total",
			Help: "Verification lookups served from the cache.",
		}),
		VerifyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentry_verify_cache_misses_total",
			Help: "Verification lookups that missed the cache.",
		}),
	}
}

// ObserveVerification records one verification by outcome.
func (m *Metrics) ObserveVerification(valid bool) {
	if m == nil {
		return
	}
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}
