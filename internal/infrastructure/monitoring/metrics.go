package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Conversion metrics
	Conversions  *prometheus.CounterVec
	Skipped      *prometheus.CounterVec
	Scans        *prometheus.CounterVec
	ScanDuration *prometheus.HistogramVec
	MarksActive  prometheus.Gauge
	Reverts      prometheus.Counter

	// Rate metrics
	RateRefreshes *prometheus.CounterVec
	RateDuration  *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON API.
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	Conversions    int64   `json:"conversions"`
	ActiveSessions int64   `json:"active_sessions"`
	TotalDuration  float64 `json:"total_duration_seconds"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector on its own registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers the collectors on reg.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zentat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zentat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zentat_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zentat_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		Conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zentat_conversions_total",
				Help: "Prices converted, by source currency",
			},
			[]string{"currency"},
		),
		Skipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zentat_skipped_total",
				Help: "Candidates or prices skipped, by reason",
			},
			[]string{"reason"},
		),
		Scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zentat_scans_total",
				Help: "Tree scans, by kind",
			},
			[]string{"kind"},
		),
		ScanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zentat_scan_duration_seconds",
				Help:    "Tree scan duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind"},
		),
		MarksActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "zentat_marks_active",
				Help: "Elements currently showing converted prices",
			},
		),
		Reverts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "zentat_reverts_total",
				Help: "Elements restored to their original markup",
			},
		),

		RateRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zentat_rate_refreshes_total",
				Help: "Rate table refreshes, by source and status",
			},
			[]string{"source", "status"},
		),
		RateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zentat_rate_refresh_duration_seconds",
				Help:    "Rate refresh duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "zentat_sessions_active",
				Help: "Number of live document sessions",
			},
		),
		SessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "zentat_sessions_total",
				Help: "Total number of sessions created",
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "zentat_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordConversion records one converted price
func (m *Metrics) RecordConversion(currency string) {
	if m == nil {
		return
	}
	m.Conversions.WithLabelValues(currency).Inc()
	m.mu.Lock()
	m.snapshot.Conversions++
	m.mu.Unlock()
}

// RecordSkip records a skipped candidate or price
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(reason).Inc()
}

// RecordScan records a completed scan
func (m *Metrics) RecordScan(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(kind).Inc()
	m.ScanDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetMarksActive sets the number of marked elements
func (m *Metrics) SetMarksActive(count int) {
	if m == nil {
		return
	}
	m.MarksActive.Set(float64(count))
}

// AddReverts counts restored elements
func (m *Metrics) AddReverts(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.Reverts.Add(float64(count))
}

// RecordRateRefresh records a rate fetch attempt
func (m *Metrics) RecordRateRefresh(source, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RateRefreshes.WithLabelValues(source, status).Inc()
	m.RateDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// SetSessionsActive sets the number of active sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncSessionsTotal increments the created sessions counter
func (m *Metrics) IncSessionsTotal() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
}

// Snapshot returns the current JSON-friendly values
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
