// Package pipeline wires the phonalign stages together: transcript ingest,
// alignment against the reference text, and audio splitting.
//
// The stages run strictly in sequence: ingest reads the transcript to
// completion before matching begins, and matching finishes before any audio
// is cut. The alignment stage is checkpointed through the ledger: when a
// non-trivial ledger file already exists it is trusted and alignment is
// skipped entirely, which is what makes the hand-edit-then-rerun workflow
// possible.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/phonalign/phonalign/internal/align"
	"github.com/phonalign/phonalign/internal/config"
	"github.com/phonalign/phonalign/internal/ledger"
	"github.com/phonalign/phonalign/internal/observe"
	"github.com/phonalign/phonalign/internal/splitter"
	"github.com/phonalign/phonalign/internal/srt"
	"github.com/phonalign/phonalign/pkg/phoneme"
)

// Stage names a pipeline stage for [Options.StopAfter].
type Stage string

const (
	// StageAlign covers ingest plus alignment; stopping here leaves the
	// ledger on disk for review without touching the audio.
	StageAlign Stage = "align"

	// StageSplit is the final stage.
	StageSplit Stage = "split"
)

// IsValid reports whether s is a recognised stage.
func (s Stage) IsValid() bool {
	return s == StageAlign || s == StageSplit
}

// Options are the per-run inputs of the pipeline.
type Options struct {
	// AudioPath is the source audio file to cut.
	AudioPath string

	// TextPath is the clean reference text (e.g. the ebook).
	TextPath string

	// TranscriptPath is the word-level timestamped transcript produced by
	// the external speech recogniser.
	TranscriptPath string

	// LedgerPath is the alignment checkpoint file.
	LedgerPath string

	// StopAfter, when non-empty, ends the run after the named stage.
	StopAfter Stage
}

// Pipeline runs the alignment pipeline. Construct with [New]; safe to reuse
// for sequential runs, but a single run owns its ledger exclusively.
type Pipeline struct {
	cfg     *config.Config
	conv    phoneme.Converter
	metrics *observe.Metrics
}

// New returns a Pipeline using conv for all phonetic conversion.
func New(cfg *config.Config, conv phoneme.Converter) *Pipeline {
	return &Pipeline{cfg: cfg, conv: conv, metrics: observe.DefaultMetrics()}
}

// Run executes the pipeline for the given inputs.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	ctx, span := observe.StartSpan(ctx, "pipeline.run")
	defer span.End()

	slices, err := ledger.LoadOrCompute(ctx, opts.LedgerPath, func(ctx context.Context, w *ledger.Writer) error {
		return p.alignStage(ctx, opts, w)
	})
	if err != nil {
		return err
	}
	observe.Logger(ctx).Info("slice list ready", "slices", len(slices))

	if opts.StopAfter == StageAlign {
		return nil
	}

	return p.splitStage(ctx, opts, slices)
}

// alignStage ingests the transcript and aligns the reference text against
// it, appending every outcome to w.
func (p *Pipeline) alignStage(ctx context.Context, opts Options, w *ledger.Writer) error {
	ctx, span := observe.StartSpan(ctx, "pipeline.align")
	defer span.End()

	// --- Ingest: transcript → phonetic index ---
	started := time.Now()
	tf, err := os.Open(opts.TranscriptPath)
	if err != nil {
		return fmt.Errorf("pipeline: open transcript: %w", err)
	}

	var lastBytes int64
	idx, err := align.BuildIndex(ctx, srt.NewReader(tf), p.conv, func(bytes int64) {
		p.metrics.IngestBytes.Add(ctx, bytes-lastBytes)
		lastBytes = bytes
	})
	tf.Close()
	if err != nil {
		return err
	}
	p.metrics.WordsIndexed.Add(ctx, int64(idx.Words()))
	p.metrics.IngestDuration.Record(ctx, time.Since(started).Seconds())
	observe.Logger(ctx).Info("transcript indexed",
		"words", idx.Words(),
		"buffer_runes", idx.BufferLen(),
	)

	// --- Align: reference text → ledger records ---
	started = time.Now()
	rf, err := os.Open(opts.TextPath)
	if err != nil {
		return fmt.Errorf("pipeline: open reference text: %w", err)
	}
	defer rf.Close()

	matcher := align.NewMatcher(idx, p.conv, p.cfg.Align)
	sink := &countingSink{inner: w, metrics: p.metrics, ctx: ctx}
	if _, err := matcher.AlignAll(ctx, align.NewSegmenter(rf), sink); err != nil {
		return err
	}
	p.metrics.AlignDuration.Record(ctx, time.Since(started).Seconds())

	matched, refOnly, trOnly, ambiguous := w.Counts()
	observe.Logger(ctx).Info("alignment complete",
		"matched", matched,
		"reference_only", refOnly,
		"transcript_only", trOnly,
		"ambiguous", ambiguous,
	)
	return nil
}

// splitStage cuts the audio according to the slice list.
func (p *Pipeline) splitStage(ctx context.Context, opts Options, slices []ledger.Slice) error {
	ctx, span := observe.StartSpan(ctx, "pipeline.split")
	defer span.End()

	started := time.Now()
	sp := splitter.New(splitter.WithFFmpeg(p.cfg.FFmpegPath))
	total, err := sp.Split(ctx, opts.AudioPath, slices)
	if err != nil {
		return err
	}
	p.metrics.SlicesCut.Add(ctx, int64(len(slices)))
	p.metrics.SplitDuration.Record(ctx, time.Since(started).Seconds())

	return sp.VerifyCount(opts.AudioPath, total)
}

// countingSink forwards records to the ledger writer while recording the
// per-kind outcome metric.
type countingSink struct {
	inner   align.RecordSink
	metrics *observe.Metrics
	ctx     context.Context
}

func (s *countingSink) Append(rec align.Record) error {
	s.metrics.RecordAlignRecord(s.ctx, rec.Kind.String())
	return s.inner.Append(rec)
}
