package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report outcomes used as the "result" label
const (
	ResultSent        = "sent"
	ResultEncodeError = "encode_error"
	ResultBuildError  = "build_error"
	ResultSendError   = "send_error"
	ResultPanic       = "panic"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Reporter metrics
	ReportsTotal   *prometheus.CounterVec
	SpansTotal     *prometheus.CounterVec
	PayloadSize    prometheus.Histogram
	ReportDuration prometheus.Histogram

	// Tracer metrics
	SpansDropped *prometheus.CounterVec
	SpansStarted prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	ReportsSent   int64   `json:"reports_sent"`
	ReportsFailed int64   `json:"reports_failed"`
	SpansSent     int64   `json:"spans_sent"`
	SpansFailed   int64   `json:"spans_failed"`
	SpansDropped  int64   `json:"spans_dropped"`
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector registered with reg.
// A nil registerer creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// Reporter metrics
		ReportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipkin_reports_total",
				Help: "Total number of report calls by outcome",
			},
			[]string{"result"},
		),
		SpansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipkin_spans_total",
				Help: "Total number of spans handed to the reporter by outcome",
			},
			[]string{"result"},
		),
		PayloadSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zipkin_payload_size_bytes",
				Help:    "Encoded report payload size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
		),
		ReportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "zipkin_report_duration_seconds",
				Help:    "Report call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		// Tracer metrics
		SpansDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipkin_spans_dropped_total",
				Help: "Total number of spans dropped before reporting",
			},
			[]string{"reason"},
		),
		SpansStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "zipkin_spans_started_total",
				Help: "Total number of spans started by the tracer",
			},
		),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipkin_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zipkin_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "zipkin_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordReport records the outcome of one report call. Safe on a nil receiver.
func (m *Metrics) RecordReport(result string, spans int, payloadSize int, duration time.Duration) {
	if m == nil {
		return
	}

	m.ReportsTotal.WithLabelValues(result).Inc()
	m.SpansTotal.WithLabelValues(result).Add(float64(spans))
	m.ReportDuration.Observe(duration.Seconds())
	if payloadSize > 0 {
		m.PayloadSize.Observe(float64(payloadSize))
	}

	m.mu.Lock()
	if result == ResultSent {
		m.snapshot.ReportsSent++
		m.snapshot.SpansSent += int64(spans)
	} else {
		m.snapshot.ReportsFailed++
		m.snapshot.SpansFailed += int64(spans)
	}
	m.mu.Unlock()
}

// RecordDroppedSpan records a span the tracer discarded. Safe on a nil receiver.
func (m *Metrics) RecordDroppedSpan(reason string) {
	if m == nil {
		return
	}

	m.SpansDropped.WithLabelValues(reason).Inc()

	m.mu.Lock()
	m.snapshot.SpansDropped++
	m.mu.Unlock()
}

// IncSpansStarted counts a started span. Safe on a nil receiver.
func (m *Metrics) IncSpansStarted() {
	if m == nil {
		return
	}
	m.SpansStarted.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}

	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// Snapshot returns a copy of the current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
