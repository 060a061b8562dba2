package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader.
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

func histogramPoint(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.HistogramDataPoint[float64] {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("metric %q is not a histogram with data", name)
	}
	return hist.DataPoints[0]
}

// sumFor returns the value of the counter data point whose attributes
// contain every key/value in want.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
points:
	for _, dp := range sum.DataPoints {
		for _, kv := range want {
			v, ok := dp.Attributes.Value(kv.Key)
			if !ok || v != kv.Value {
				continue points
			}
		}
		return dp.Value
	}
	t.Fatalf("metric %q: no data point with %v", name, want)
	return 0
}

func TestHistograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.STTDuration.Record(ctx, 0.4)
	m.LLMDuration.Record(ctx, 1.2)
	m.LLMDuration.Record(ctx, 0.8)
	m.TTSDuration.Record(ctx, 0.3)
	m.TurnDuration.Record(ctx, 2.1)

	rm := collect(t, reader)
	tests := []struct {
		name string
		want uint64
	}{
		{"callagent.stt.duration", 1},
		{"callagent.llm.duration", 2},
		{"callagent.tts.duration", 1},
		{"callagent.turn.duration", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := histogramPoint(t, rm, tc.name).Count; got != tc.want {
				t.Errorf("count = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRecordHelpers(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "restaurant", "hours")
	m.RecordTurn(ctx, "restaurant", "hours")
	m.RecordTurn(ctx, "restaurant", "rag")
	m.RecordSessionStarted(ctx, "travel", "booking")
	m.RecordSessionCompleted(ctx, "travel", "booking")
	m.RecordFallback(ctx, FallbackTimeout)
	m.RecordProviderRequest(ctx, "openai", "llm", "ok")
	m.RecordProviderError(ctx, "elevenlabs", "tts")
	m.ActiveConversations.Add(ctx, 2)
	m.ActiveConversations.Add(ctx, -1)

	rm := collect(t, reader)
	tests := []struct {
		name  string
		attrs []attribute.KeyValue
		want  int64
	}{
		{"callagent.turns", []attribute.KeyValue{Attr("intent", "hours")}, 2},
		{"callagent.turns", []attribute.KeyValue{Attr("intent", "rag")}, 1},
		{"callagent.sessions.started", []attribute.KeyValue{Attr("domain", "travel"), Attr("kind", "booking")}, 1},
		{"callagent.sessions.completed", []attribute.KeyValue{Attr("kind", "booking")}, 1},
		{"callagent.completion.fallbacks", []attribute.KeyValue{Attr("reason", "timeout")}, 1},
		{"callagent.provider.requests", []attribute.KeyValue{Attr("status", "ok")}, 1},
		{"callagent.provider.errors", []attribute.KeyValue{Attr("provider", "elevenlabs")}, 1},
		{"callagent.active_conversations", nil, 1},
	}
	for _, tc := range tests {
		if got := sumFor(t, rm, tc.name, tc.attrs...); got != tc.want {
			t.Errorf("%s%v = %d, want %d", tc.name, tc.attrs, got, tc.want)
		}
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different pointers")
	}
}
