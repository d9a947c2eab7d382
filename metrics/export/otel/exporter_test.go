package otel

import (
	"context"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goSession.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goSession.MetricsSnapshot{
		Counters:   make(map[goSession.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goSession.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader(t *testing.T, src Source) (*sdkmetric.ManualReader, *Exporter) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exp, err := NewExporter(provider.Meter("gosession-test"), src)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	t.Cleanup(func() {
		if err := exp.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return reader, exp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] = dp.Value
				}
			}
		}
	}
	return out
}

func TestExporterCollectsSnapshot(t *testing.T) {
	src := &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricLoginSuccess:   3,
				goSession.MetricRefreshSuccess: 2,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricRequestLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}
	reader, _ := newReader(t, src)

	got := collect(t, reader)
	for name, want := range map[string]int64{
		"gosession_login_success_total":                     3,
		"gosession_refresh_success_total":                   2,
		"gosession_audit_dropped_total":                     1,
		"gosession_request_latency_seconds_bucket_le_0_025": 3,
		"gosession_request_latency_seconds_bucket_le_inf":   8,
		"gosession_request_latency_seconds_count":           8,
	} {
		if got[name] != want {
			t.Errorf("%s = %d, want %d", name, got[name], want)
		}
	}
	if _, ok := got["gosession_logout_total"]; ok {
		t.Error("counter missing from the snapshot was observed")
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	if _, err := NewExporter(provider.Meter("x"), nil); err != ErrNilSource {
		t.Fatalf("err = %v, want ErrNilSource", err)
	}
	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("err = %v, want ErrNilMeter", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	src := &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{goSession.MetricLoginSuccess: 1},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	}
	reader, _ := newReader(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goSession.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

type refreshingSource struct {
	*fakeSource
	waiters int
}

func (r refreshingSource) Refreshing() (bool, int) { return r.waiters > 0, r.waiters }

func TestExporterObservesRefreshState(t *testing.T) {
	base := &fakeSource{snapshot: goSession.MetricsSnapshot{
		Counters:   map[goSession.MetricID]uint64{},
		Histograms: map[goSession.MetricID][]uint64{},
	}}

	reader, _ := newReader(t, refreshingSource{fakeSource: base, waiters: 4})
	got := collect(t, reader)
	if got["gosession_refresh_in_flight"] != 1 || got["gosession_refresh_waiters"] != 4 {
		t.Fatalf("refresh gauges = %d/%d", got["gosession_refresh_in_flight"], got["gosession_refresh_waiters"])
	}

	plain, _ := newReader(t, base)
	if _, ok := collect(t, plain)["gosession_refresh_waiters"]; ok {
		t.Fatal("refresh gauge observed for a source without refresh state")
	}
}
