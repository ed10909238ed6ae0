package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordSession(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSession(ctx, "silence", 65, 4*time.Second)
	m.RecordSession(ctx, "timeout", 187, 12*time.Second)
	m.RecordSession(ctx, "canceled", 0, 0)

	rm := collect(t, reader)

	sessions := findMetric(rm, "voicemic.sessions")
	if sessions == nil {
		t.Fatal("voicemic.sessions not found")
	}
	sum, ok := sessions.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", sessions.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("sessions total: got %d, want 3", total)
	}

	frames := findMetric(rm, "voicemic.session.frames")
	if frames == nil {
		t.Fatal("voicemic.session.frames not found")
	}
	hist, ok := frames.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", frames.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("frame observations: got %d, want 2 (canceled sessions are not sized)", count)
	}
}

func TestRecordStateAndErrors(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordState(ctx, "idle")
	m.RecordState(ctx, "idle")
	m.RecordCollaboratorError(ctx, "asr")
	m.ObserveASR(ctx, 300*time.Millisecond)
	m.ObserveTTS(ctx, 80*time.Millisecond)

	rm := collect(t, reader)

	for _, name := range []string{
		"voicemic.state.transitions",
		"voicemic.collaborator.errors",
		"voicemic.asr.duration",
		"voicemic.tts.duration",
	} {
		if findMetric(rm, name) == nil {
			t.Errorf("%s not recorded", name)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordSession(ctx, "silence", 1, time.Second)
	m.RecordState(ctx, "idle")
	m.RecordCollaboratorError(ctx, "tts")
	m.ObserveASR(ctx, time.Second)
	m.ObserveTTS(ctx, time.Second)
}
