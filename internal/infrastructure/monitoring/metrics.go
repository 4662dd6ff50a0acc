package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Response outcomes recorded by RecordResponse
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeEmpty     = "empty"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Bridge metrics
	BridgeCalls     *prometheus.CounterVec
	BridgeDuration  *prometheus.HistogramVec
	BridgePending   prometheus.Gauge
	BridgeResponses *prometheus.CounterVec
	BridgeEvicted   prometheus.Counter

	// Execution context metrics
	ContextAttached prometheus.Gauge
	WSMessages      *prometheus.CounterVec

	gatherer prometheus.Gatherer

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalCalls     int64 `json:"total_calls"`
	ResolvedCalls  int64 `json:"resolved_calls"`
	DetachedCalls  int64 `json:"detached_calls"`
	TimedOutCalls  int64 `json:"timed_out_calls"`
	Unmatched      int64 `json:"unmatched_responses"`
	Pending        int64 `json:"pending"`
	EvictedSlots   int64 `json:"evicted_slots"`
	ContextPresent bool  `json:"context_attached"`
}

// NewMetrics creates a metrics collector registered on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith creates a metrics collector on the given registerer
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notebridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notebridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		BridgeCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notebridge_bridge_calls_total",
				Help: "Total number of bridge calls by outcome",
			},
			[]string{"status"},
		),
		BridgeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notebridge_bridge_call_duration_seconds",
				Help:    "Time from dispatch to resolution of a bridge call",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"status"},
		),
		BridgePending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notebridge_bridge_pending_slots",
				Help: "Number of unresolved response slots",
			},
		),
		BridgeResponses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notebridge_bridge_responses_total",
				Help: "Inbound responses by outcome",
			},
			[]string{"outcome"},
		),
		BridgeEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notebridge_bridge_evicted_slots_total",
				Help: "Abandoned response slots removed by the sweeper",
			},
		),

		ContextAttached: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notebridge_context_attached",
				Help: "1 while an execution context is attached",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notebridge_ws_messages_total",
				Help: "Total number of web view WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}
}

// Handler exposes the collector's registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordBridgeCall records a finished bridge call
func (m *Metrics) RecordBridgeCall(status string, duration time.Duration) {
	m.BridgeCalls.WithLabelValues(status).Inc()
	m.BridgeDuration.WithLabelValues(status).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalCalls++
	switch status {
	case "resolved", "empty":
		m.snapshot.ResolvedCalls++
	case "detached":
		m.snapshot.DetachedCalls++
	case "canceled":
		m.snapshot.TimedOutCalls++
	}
	m.mu.Unlock()
}

// RecordResponse records an inbound response by outcome
func (m *Metrics) RecordResponse(outcome string) {
	m.BridgeResponses.WithLabelValues(outcome).Inc()
	if outcome == OutcomeUnmatched {
		m.mu.Lock()
		m.snapshot.Unmatched++
		m.mu.Unlock()
	}
}

// SetPending sets the number of outstanding slots
func (m *Metrics) SetPending(count int) {
	m.BridgePending.Set(float64(count))
	m.mu.Lock()
	m.snapshot.Pending = int64(count)
	m.mu.Unlock()
}

// AddEvicted records slots removed by the sweeper
func (m *Metrics) AddEvicted(count int) {
	m.BridgeEvicted.Add(float64(count))
	m.mu.Lock()
	m.snapshot.EvictedSlots += int64(count)
	m.mu.Unlock()
}

// SetAttached records whether an execution context is attached
func (m *Metrics) SetAttached(attached bool) {
	v := 0.0
	if attached {
		v = 1
	}
	m.ContextAttached.Set(v)
	m.mu.Lock()
	m.snapshot.ContextPresent = attached
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// Snapshot returns a copy of the current values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
