package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestCorrelationID_EmptyWithoutSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID = %q, want empty", got)
	}
}

func TestLogger_TraceAttributes(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	Logger(context.Background()).Info("plain")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log without span has trace_id: %s", buf.String())
	}
	buf.Reset()

	ctx, span := tp.Tracer("test").Start(context.Background(), "turn")
	defer span.End()
	Logger(ctx).Info("traced")

	out := buf.String()
	if !strings.Contains(out, "trace_id="+CorrelationID(ctx)) || !strings.Contains(out, "span_id=") {
		t.Errorf("log output missing trace attributes: %s", out)
	}
}
