// Package observe provides observability primitives for phonalign:
// OpenTelemetry metrics with a Prometheus exporter bridge, and tracing
// helpers for the pipeline stages.
//
// A long alignment run is opaque without instrumentation; the interesting
// questions ("how much of the transcript is ingested?", "what fraction of
// segments are matching?") are all answerable from the counters here. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all phonalign metrics.
const meterName = "github.com/phonalign/phonalign"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Stage duration histograms ---

	// IngestDuration tracks transcript ingest + phonemization time.
	IngestDuration metric.Float64Histogram

	// AlignDuration tracks the full alignment pass.
	AlignDuration metric.Float64Histogram

	// SplitDuration tracks audio splitting time.
	SplitDuration metric.Float64Histogram

	// --- Counters ---

	// IngestBytes counts bytes consumed from the transcript stream.
	IngestBytes metric.Int64Counter

	// WordsIndexed counts transcript words added to the phonetic index.
	WordsIndexed metric.Int64Counter

	// AlignRecords counts alignment outcomes. Use with attribute:
	//   attribute.String("kind", ...): matched, reference-only,
	//   transcript-only, or ambiguous.
	AlignRecords metric.Int64Counter

	// SlicesCut counts audio slices written by the splitter.
	SlicesCut metric.Int64Counter
}

// stageBuckets defines histogram bucket boundaries (in seconds) sized for
// batch pipeline stages, which run from seconds to tens of minutes.
var stageBuckets = []float64{
	0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.IngestDuration, err = m.Float64Histogram("phonalign.ingest.duration",
		metric.WithDescription("Duration of transcript ingest and phonemization."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignDuration, err = m.Float64Histogram("phonalign.align.duration",
		metric.WithDescription("Duration of the alignment pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SplitDuration, err = m.Float64Histogram("phonalign.split.duration",
		metric.WithDescription("Duration of audio splitting."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.IngestBytes, err = m.Int64Counter("phonalign.ingest.bytes",
		metric.WithDescription("Bytes consumed from the transcript stream."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.WordsIndexed, err = m.Int64Counter("phonalign.index.words",
		metric.WithDescription("Transcript words added to the phonetic index."),
	); err != nil {
		return nil, err
	}
	if met.AlignRecords, err = m.Int64Counter("phonalign.align.records",
		metric.WithDescription("Alignment outcomes by kind."),
	); err != nil {
		return nil, err
	}
	if met.SlicesCut, err = m.Int64Counter("phonalign.split.slices",
		metric.WithDescription("Audio slices written by the splitter."),
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

// RecordAlignRecord increments the alignment outcome counter for kind.
func (m *Metrics) RecordAlignRecord(ctx context.Context, kind string) {
	m.AlignRecords.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
