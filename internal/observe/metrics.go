// Package observe provides application-wide observability primitives for
// the speech pipeline: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pipeline metrics.
const meterName = "github.com/saletech/speechcore"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// VADDuration tracks per-frame voice-activity-detection latency.
	VADDuration metric.Float64Histogram

	// ASRDuration tracks per-utterance transcription latency.
	ASRDuration metric.Float64Histogram

	// --- Counters ---

	// FramesAttempted counts every frame a producer tried to enqueue,
	// whether or not it was admitted.
	FramesAttempted metric.Int64Counter

	// FramesReceived counts frames successfully admitted to the ingress
	// buffer.
	FramesReceived metric.Int64Counter

	// FramesDropped counts frames evicted by the ingress buffer's
	// drop-oldest overflow policy.
	FramesDropped metric.Int64Counter

	// UtterancesFinalized counts utterances the segment buffer emitted for
	// transcription, by reason ("eot" or "safety_valve").
	UtterancesFinalized metric.Int64Counter

	// UtterancesDiscarded counts utterances discarded for having too
	// little speech (below min_speech_samples).
	UtterancesDiscarded metric.Int64Counter

	// --- Error counters ---

	// PipelineErrors counts errors surfaced from any pipeline stage by
	// kind. Use with attribute.String("kind", ...), attribute.String("component", ...).
	PipelineErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live pipeline sessions.
	ActiveSessions metric.Int64UpDownCounter

	// InFlightASRJobs tracks in-flight transcription calls against the
	// process-wide ASR concurrency cap.
	InFlightASRJobs metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for per-frame VAD and per-utterance ASR latencies.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.VADDuration, err = m.Float64Histogram("speechcore.vad.duration",
		metric.WithDescription("Latency of per-frame voice activity detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ASRDuration, err = m.Float64Histogram("speechcore.asr.duration",
		metric.WithDescription("Latency of per-utterance transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesAttempted, err = m.Int64Counter("speechcore.frames.attempted",
		metric.WithDescription("Total frames a producer attempted to enqueue."),
	); err != nil {
		return nil, err
	}
	if met.FramesReceived, err = m.Int64Counter("speechcore.frames.received",
		metric.WithDescription("Total frames successfully admitted to the ingress buffer."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("speechcore.frames.dropped",
		metric.WithDescription("Total frames evicted by the drop-oldest overflow policy."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesFinalized, err = m.Int64Counter("speechcore.utterances.finalized",
		metric.WithDescription("Total utterances emitted for transcription, by reason."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesDiscarded, err = m.Int64Counter("speechcore.utterances.discarded",
		metric.WithDescription("Total utterances discarded for insufficient speech."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.PipelineErrors, err = m.Int64Counter("speechcore.pipeline.errors",
		metric.WithDescription("Total pipeline errors by kind and component."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("speechcore.active_sessions",
		metric.WithDescription("Number of live pipeline sessions."),
	); err != nil {
		return nil, err
	}
	if met.InFlightASRJobs, err = m.Int64UpDownCounter("speechcore.asr.in_flight",
		metric.WithDescription("Number of in-flight transcription calls."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("speechcore.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordError is a convenience method that records a pipeline error counter
// increment with the standard attribute set.
func (m *Metrics) RecordError(ctx context.Context, kind, component string) {
	m.PipelineErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("component", component),
		),
	)
}

// RecordUtteranceFinalized is a convenience method that records an utterance
// finalization counter increment with the finalize reason.
func (m *Metrics) RecordUtteranceFinalized(ctx context.Context, reason string) {
	m.UtterancesFinalized.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
