// Package metrics provides Prometheus collectors for authorization and
// HTTP traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	// Authorization metrics
	authFailuresTotal     *prometheus.CounterVec
	permissionChecksTotal *prometheus.CounterVec

	// Signing key cache metrics
	jwksLookupsTotal   *prometheus.CounterVec
	jwksRefreshesTotal *prometheus.CounterVec
	jwksKeys           prometheus.Gauge

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. With a nil reg
// the collectors work but are not exported anywhere.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		authFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coffeeshop_auth_failures_total",
			Help: "Total rejected authorizations by error code",
		}, []string{"code"}),
		permissionChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coffeeshop_permission_checks_total",
			Help: "Total permission checks by permission and result",
		}, []string{"permission", "result"}),
		jwksLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coffeeshop_jwks_lookups_total",
			Help: "Signing key lookups by cache state",
		}, []string{"result"}),
		jwksRefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coffeeshop_jwks_refreshes_total",
			Help: "Key set fetches by result",
		}, []string{"result"}),
		jwksKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coffeeshop_jwks_keys",
			Help: "Number of signing keys currently cached",
		}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coffeeshop_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coffeeshop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordAuthFailure counts a rejected authorization.
func (m *Metrics) RecordAuthFailure(code string) {
	if m == nil {
		return
	}
	m.authFailuresTotal.WithLabelValues(code).Inc()
}

// RecordPermissionCheck counts a permission check; granted reports whether
// the permission was present.
func (m *Metrics) RecordPermissionCheck(permission string, granted bool) {
	if m == nil {
		return
	}
	result := "denied"
	if granted {
		result = "granted"
	}
	m.permissionChecksTotal.WithLabelValues(permission, result).Inc()
}

// RecordKeyLookup counts a key lookup. result is one of hit, miss or stale.
func (m *Metrics) RecordKeyLookup(result string) {
	if m == nil {
		return
	}
	m.jwksLookupsTotal.WithLabelValues(result).Inc()
}

// RecordKeyRefresh counts a key set fetch and, on success, the key count.
func (m *Metrics) RecordKeyRefresh(err error, keys int) {
	if m == nil {
		return
	}
	if err != nil {
		m.jwksRefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	m.jwksRefreshesTotal.WithLabelValues("success").Inc()
	m.jwksKeys.Set(float64(keys))
}

// RecordRequest records one served HTTP request.
func (m *Metrics) RecordRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
