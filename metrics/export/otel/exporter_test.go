package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/taskforge/authcore"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authcore.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authcore.MetricsSnapshot{
		Counters: make(map[authcore.MetricID]uint64, len(f.snapshot.Counters)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) set(id authcore.MetricID, v uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot.Counters == nil {
		f.snapshot.Counters = map[authcore.MetricID]uint64{}
	}
	f.snapshot.Counters[id] = v
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	values := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				values[m.Name] = dp.Value
			}
		}
	}
	return values
}

func TestExporterObservesSnapshot(t *testing.T) {
	source := &fakeSource{}
	source.set(authcore.MetricLoginSuccess, 7)
	source.set(authcore.MetricLoginFailure, 3)
	source.mu.Lock()
	source.dropped = 2
	source.mu.Unlock()

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("authcore-test")

	exporter, err := NewExporter(meter, source)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	defer exporter.Close()

	values := collect(t, reader)
	if values["authcore_login_success_total"] != 7 {
		t.Errorf("login success = %d, want 7", values["authcore_login_success_total"])
	}
	if values["authcore_login_failure_total"] != 3 {
		t.Errorf("login failure = %d, want 3", values["authcore_login_failure_total"])
	}
	if values["authcore_audit_dropped_total"] != 2 {
		t.Errorf("audit dropped = %d, want 2", values["authcore_audit_dropped_total"])
	}

	// A later collection observes updated values.
	source.set(authcore.MetricLoginSuccess, 9)
	values = collect(t, reader)
	if values["authcore_login_success_total"] != 9 {
		t.Errorf("login success after update = %d, want 9", values["authcore_login_success_total"])
	}
}

func TestExporterRejectsNilArgs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("authcore-test")

	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("err = %v, want ErrNilMeter", err)
	}
	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("err = %v, want ErrNilSource", err)
	}
}

func TestExporterCloseUnregisters(t *testing.T) {
	source := &fakeSource{}
	source.set(authcore.MetricLogout, 1)

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("authcore-test")

	exporter, err := NewExporter(meter, source)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	values := collect(t, reader)
	if _, ok := values["authcore_logout_total"]; ok {
		t.Fatal("metrics still observed after Close")
	}
}
