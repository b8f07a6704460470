// Package metrics exposes Prometheus counters for authentication outcomes.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatekeeper"

type AuthMetrics struct {
	verifications *prometheus.CounterVec
	rotations     *prometheus.CounterVec
	proxied       *prometheus.CounterVec
	revocations   *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// New registers the counters on a fresh registry.
func New() *AuthMetrics {
	reg := prometheus.NewRegistry()
	m := &AuthMetrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Token verifications by expected kind and outcome.",
		}, []string{"kind", "outcome"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rotations_total",
			Help:      "Refresh rotations by outcome.",
		}, []string{"outcome"}),
		proxied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxied_requests_total",
			Help:      "Requests forwarded to internal services by route and upstream status.",
		}, []string{"route", "code"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_revocations_total",
			Help:      "Logout revocations by outcome.",
		}, []string{"outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.verifications, m.rotations, m.proxied, m.revocations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *AuthMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *AuthMetrics) ObserveVerification(kind string, err error) {
	m.verifications.WithLabelValues(kind, Outcome(err)).Inc()
}

func (m *AuthMetrics) ObserveRotation(err error) {
	m.rotations.WithLabelValues(Outcome(err)).Inc()
}

func (m *AuthMetrics) ObserveRevocation(err error) {
	m.revocations.WithLabelValues(Outcome(err)).Inc()
}

func (m *AuthMetrics) ObserveProxy(route string, code int) {
	m.proxied.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Outcome turns an auth error into a bounded label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrNoToken), errors.Is(err, common.ErrNoRefreshToken):
		return "missing"
	case errors.Is(err, common.ErrRevokedToken):
		return "revoked"
	case errors.Is(err, common.ErrTokenSubjectMismatch):
		return "subject_mismatch"
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrInvalidRefreshToken):
		return "invalid"
	case errors.Is(err, common.ErrorForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrInfrastructure):
		return "infrastructure"
	case errors.Is(err, common.ErrorValidation):
		return "malformed"
	default:
		return "error"
	}
}
