// Package observe provides observability primitives for the oracy server:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware tying them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so metrics can be scraped
// from the standard /metrics endpoint. Tests should use [NewMetrics] with a
// custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all oracy metrics.
const meterName = "github.com/nexuslearn/oracy"

// Metrics holds all OpenTelemetry metric instruments for the application.
// The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// TurnLatency tracks per-stage conversation turn latency. Use with
	// attribute.String("stage", ...) where stage is one of "transcribe",
	// "generate", "synthesize", or "turn" for the end-to-end time.
	TurnLatency metric.Float64Histogram

	// ProviderRequests counts model provider calls by provider name.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts model provider failures by provider name. A
	// turn that degrades to empty output increments this once.
	ProviderErrors metric.Int64Counter

	// ActiveSessions tracks live tutoring sessions, including disconnected
	// sessions still inside their recovery window.
	ActiveSessions metric.Int64UpDownCounter

	// AudioBytesReceived counts PCM bytes accepted into session buffers.
	AudioBytesReceived metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time by method
	// and path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// voice-turn latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TurnLatency, err = m.Float64Histogram("oracy.turn.latency",
		metric.WithDescription("Conversation turn latency by pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("oracy.provider.requests",
		metric.WithDescription("Total model provider requests by provider."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("oracy.provider.errors",
		metric.WithDescription("Total model provider failures by provider."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("oracy.active_sessions",
		metric.WithDescription("Number of live tutoring sessions."),
	); err != nil {
		return nil, err
	}
	if met.AudioBytesReceived, err = m.Int64Counter("oracy.audio.bytes_received",
		metric.WithDescription("PCM bytes accepted into session audio buffers."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("oracy.http.request.duration",
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
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

// RecordTurnLatency records one pipeline-stage duration in seconds.
func (m *Metrics) RecordTurnLatency(ctx context.Context, stage string, seconds float64) {
	m.TurnLatency.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)))
}

// IncProviderRequest counts one call into the named provider.
func (m *Metrics) IncProviderRequest(ctx context.Context, provider string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)))
}

// IncProviderError counts one failure from the named provider.
func (m *Metrics) IncProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)))
}

// AddActiveSessions moves the live-session gauge by delta.
func (m *Metrics) AddActiveSessions(ctx context.Context, delta int64) {
	m.ActiveSessions.Add(ctx, delta)
}

// AddAudioBytes counts PCM bytes accepted into a session buffer.
func (m *Metrics) AddAudioBytes(ctx context.Context, n int64) {
	m.AudioBytesReceived.Add(ctx, n)
}
