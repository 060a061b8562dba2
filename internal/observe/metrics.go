// Package observe provides the assistant's observability primitives:
// OpenTelemetry metrics, tracing, trace-aware logging, and HTTP middleware
// for the ops server.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged to
// Prometheus by [InitProvider] so they can be scraped from /metrics. A
// package-level [DefaultMetrics] instance is available for convenience; tests
// should use [NewMetrics] with their own [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/harjas-romana/calling-agent"

// Fallback reasons recorded by [Metrics.RecordFallback].
const (
	FallbackUnavailable = "unavailable"
	FallbackTimeout     = "timeout"
	FallbackError       = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks completion latency, fallbacks included.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TurnDuration tracks the end-to-end latency of one routed turn.
	TurnDuration metric.Float64Histogram

	// Turns counts routed turns. Attributes: domain, intent.
	Turns metric.Int64Counter

	// SessionsStarted counts dialogue sessions started. Attributes: domain, kind.
	SessionsStarted metric.Int64Counter

	// SessionsCompleted counts dialogue sessions that reached their final
	// step. Attributes: domain, kind.
	SessionsCompleted metric.Int64Counter

	// CompletionFallbacks counts canned replies returned instead of a model
	// answer. Attribute: reason.
	CompletionFallbacks metric.Int64Counter

	// ProviderRequests counts provider API calls. Attributes: provider,
	// kind, status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// ActiveConversations tracks the number of conversations holding a turn
	// lock right now.
	ActiveConversations metric.Int64UpDownCounter

	// HTTPRequestDuration tracks ops HTTP request time. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// provider and turn latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.STTDuration, "callagent.stt.duration", "Latency of speech-to-text transcription."},
		{&met.LLMDuration, "callagent.llm.duration", "Latency of LLM completions."},
		{&met.TTSDuration, "callagent.tts.duration", "Latency of text-to-speech synthesis."},
		{&met.TurnDuration, "callagent.turn.duration", "Latency of one routed conversation turn."},
	}
	for _, h := range histograms {
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.Turns, "callagent.turns", "Total routed turns by domain and intent."},
		{&met.SessionsStarted, "callagent.sessions.started", "Dialogue sessions started by domain and kind."},
		{&met.SessionsCompleted, "callagent.sessions.completed", "Dialogue sessions completed by domain and kind."},
		{&met.CompletionFallbacks, "callagent.completion.fallbacks", "Canned completion replies by reason."},
		{&met.ProviderRequests, "callagent.provider.requests", "Total provider API requests by provider, kind, and status."},
		{&met.ProviderErrors, "callagent.provider.errors", "Total provider errors by provider and kind."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.ActiveConversations, err = m.Int64UpDownCounter("callagent.active_conversations",
		metric.WithDescription("Number of conversations with a turn in progress."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("callagent.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTurn counts one routed turn.
func (m *Metrics) RecordTurn(ctx context.Context, domain, intent string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(Attr("domain", domain), Attr("intent", intent)))
}

// RecordSessionStarted counts a dialogue session start.
func (m *Metrics) RecordSessionStarted(ctx context.Context, domain, kind string) {
	m.SessionsStarted.Add(ctx, 1, metric.WithAttributes(Attr("domain", domain), Attr("kind", kind)))
}

// RecordSessionCompleted counts a completed dialogue session.
func (m *Metrics) RecordSessionCompleted(ctx context.Context, domain, kind string) {
	m.SessionsCompleted.Add(ctx, 1, metric.WithAttributes(Attr("domain", domain), Attr("kind", kind)))
}

// RecordFallback counts a canned completion reply. reason is one of the
// Fallback* constants.
func (m *Metrics) RecordFallback(ctx context.Context, reason string) {
	m.CompletionFallbacks.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			Attr("provider", provider),
			Attr("kind", kind),
			Attr("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			Attr("provider", provider),
			Attr("kind", kind),
		),
	)
}
