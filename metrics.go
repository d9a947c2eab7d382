package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/internal/metrics"
)

// MetricID identifies one client metric.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricLogout
	// MetricRefreshSuccess counts refreshes that installed a new access token.
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshQueued counts requests parked behind an in-flight refresh.
	MetricRefreshQueued
	// MetricRequestRetried counts requests re-sent after a 401.
	MetricRequestRetried
	// MetricSessionExpired counts forced sign-outs after a failed refresh.
	MetricSessionExpired
	MetricCredentialsCleared
	MetricCorruptCredentials
	MetricInitSuccess
	MetricInitFailure
	MetricNetworkError
	MetricPermissionLoadSuccess
	MetricPermissionLoadFailure
	MetricNavigationDenied
	// MetricRequests counts completed round trips, including transport failures.
	MetricRequests
	MetricRequestErrors
	// MetricRequestLatency is the only histogram.
	MetricRequestLatency
	metricIDCount
)

// Metrics holds the client's counters. A nil *Metrics discards everything.
type Metrics struct {
	enabled       bool
	enableLatency bool
	set           *metrics.Set
}

// MetricsSnapshot is a point-in-time copy. Histogram buckets are
// non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
		set:           metrics.NewSet(int(metricIDCount), int(metricIDCount)),
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.set.Inc(int(id))
}

// Observe records a latency sample. Only [MetricRequestLatency] keeps one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricRequestLatency {
		return
	}
	m.set.Observe(int(id), d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.set.Counter(int(id))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if !m.Enabled() {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = m.set.Counter(int(id))
	}
	if m.enableLatency {
		s.Histograms[MetricRequestLatency] = m.set.Buckets(int(MetricRequestLatency))
	}
	return s
}
