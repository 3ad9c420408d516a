// Package metrics provides Prometheus metrics for PocketBase client operations.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics of a client.
type Metrics struct {
	enabled bool

	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Authentication metrics
	authAttemptsTotal *prometheus.CounterVec
	authSyncsTotal    *prometheus.CounterVec

	// Pagination metrics
	fullListPagesTotal *prometheus.CounterVec
}

// New creates Metrics and registers them on reg (the default registerer when
// reg is nil). If enabled is false, returns a no-op Metrics instance.
// Registering twice on the same registerer reuses the existing collectors.
func New(enabled bool, reg prometheus.Registerer) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m.requestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pocketbase_requests_total",
		Help: "Total requests sent to the backend",
	}, []string{"method", "collection", "code"}))

	m.requestDuration = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pocketbase_request_duration_seconds",
		Help:    "Backend request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"}))

	m.authAttemptsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pocketbase_auth_attempts_total",
		Help: "Total password authentication attempts",
	}, []string{"collection", "result"}))

	m.authSyncsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pocketbase_auth_record_syncs_total",
		Help: "Total updates of the authenticated record propagated to the auth store",
	}, []string{"collection"}))

	m.fullListPagesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pocketbase_full_list_pages_total",
		Help: "Total pages fetched while aggregating full lists",
	}, []string{"collection"}))

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveRequest records one backend request. code is 0 when the request
// failed before a response was received.
func (m *Metrics) ObserveRequest(method, collection string, code int, d time.Duration) {
	if !m.enabled {
		return
	}
	label := "error"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	m.requestsTotal.WithLabelValues(method, collection, label).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordAuthAttempt records a password authentication with result
// "success", "partial" (identity stored, record type mismatch) or "failure".
func (m *Metrics) RecordAuthAttempt(collection, result string) {
	if !m.enabled {
		return
	}
	m.authAttemptsTotal.WithLabelValues(collection, result).Inc()
}

// RecordAuthSync records an update that refreshed the authenticated record.
func (m *Metrics) RecordAuthSync(collection string) {
	if !m.enabled {
		return
	}
	m.authSyncsTotal.WithLabelValues(collection).Inc()
}

// RecordFullListPage records one page fetched by a full list aggregation.
func (m *Metrics) RecordFullListPage(collection string) {
	if !m.enabled {
		return
	}
	m.fullListPagesTotal.WithLabelValues(collection).Inc()
}
