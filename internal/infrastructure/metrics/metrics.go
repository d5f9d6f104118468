package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hydra_sidecar"

// Hook outcomes
const (
	HookClaims  = "claims"
	HookEmpty   = "empty"
	HookExpired = "expired"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	syncRunsTotal     *prometheus.CounterVec
	syncClientsTotal  *prometheus.CounterVec
	syncRunDuration   prometheus.Histogram
	hookRequestsTotal *prometheus.CounterVec
	hookLookupLatency prometheus.Histogram
	tenantResolutions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors that
// are already registered are reused.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight HTTP requests by method and route",
		}, []string{"method", "path"}),
		syncRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Client sync runs by result",
		}, []string{"result"}), // converged|partial|rejected|error
		syncClientsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_clients_total",
			Help:      "Per-client sync outcomes",
		}, []string{"status"}),
		syncRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Duration of client sync runs",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		hookRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_hook_requests_total",
			Help:      "Token hook invocations by outcome",
		}, []string{"outcome"}),
		hookLookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_hook_lookup_duration_seconds",
			Help:      "Latency of the client lookup performed by the token hook",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		}),
		tenantResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_resolutions_total",
			Help:      "Network ID lookups by result",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{
		m.httpRequestsTotal, m.httpRequestDuration, m.httpInflight,
		m.syncRunsTotal, m.syncClientsTotal, m.syncRunDuration,
		m.hookRequestsTotal, m.hookLookupLatency, m.tenantResolutions,
	}
	for i, c := range collectors {
		registered, err := registerCollector(reg, c)
		if err != nil {
			return nil, err
		}
		collectors[i] = registered
	}
	m.rebind(collectors)

	return m, nil
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished HTTP request
func (m *Metrics) ObserveHTTP(method, path, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// TrackInflight increments the in-flight gauge for a route and returns the
// func that decrements it
func (m *Metrics) TrackInflight(method, path string) func() {
	if m == nil {
		return func() {}
	}
	g := m.httpInflight.WithLabelValues(method, path)
	g.Inc()
	return g.Dec
}

// RecordSyncRun records the outcome of a sync run
func (m *Metrics) RecordSyncRun(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncRunsTotal.WithLabelValues(result).Inc()
	m.syncRunDuration.Observe(elapsed.Seconds())
}

// RecordSyncClient records one per-client sync outcome
func (m *Metrics) RecordSyncClient(status string) {
	if m == nil {
		return
	}
	m.syncClientsTotal.WithLabelValues(status).Inc()
}

// RecordHook records a token hook outcome and the lookup latency
func (m *Metrics) RecordHook(outcome string, lookup time.Duration) {
	if m == nil {
		return
	}
	m.hookRequestsTotal.WithLabelValues(outcome).Inc()
	m.hookLookupLatency.Observe(lookup.Seconds())
}

// RecordTenantResolution records a network ID lookup
func (m *Metrics) RecordTenantResolution(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.tenantResolutions.WithLabelValues(result).Inc()
}

// rebind swaps fresh collectors for the ones a previous New registered
func (m *Metrics) rebind(c []prometheus.Collector) {
	m.httpRequestsTotal = c[0].(*prometheus.CounterVec)
	m.httpRequestDuration = c[1].(*prometheus.HistogramVec)
	m.httpInflight = c[2].(*prometheus.GaugeVec)
	m.syncRunsTotal = c[3].(*prometheus.CounterVec)
	m.syncClientsTotal = c[4].(*prometheus.CounterVec)
	m.syncRunDuration = c[5].(prometheus.Histogram)
	m.hookRequestsTotal = c[6].(*prometheus.CounterVec)
	m.hookLookupLatency = c[7].(prometheus.Histogram)
	m.tenantResolutions = c[8].(*prometheus.CounterVec)
}

// registerCollector registers c, returning the existing collector when an
// identical one is already registered
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}
