package align

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phonalign/phonalign/pkg/phoneme"
)

// Config holds the alignment tunables. The defaults reproduce behaviour
// that was calibrated empirically against English audiobooks; other corpora
// may want different windows.
type Config struct {
	// MaxDistanceDivisor sets the fuzzy-search tolerance: a segment of
	// phonetic length n may match with edit distance up to n/MaxDistanceDivisor.
	// Default 4 (25% tolerance).
	MaxDistanceDivisor int `yaml:"max_distance_divisor"`

	// AcceptHorizon scales the asymmetric acceptance rule: a candidate at
	// window offset s with distance d over pattern length n is accepted only
	// when s < AcceptHorizon·(1−d/n). Near-perfect matches are trusted up to
	// a full horizon into the window; sloppier ones only right at the
	// cursor. Default 1000.
	AcceptHorizon int `yaml:"accept_horizon"`

	// LongSegmentRunes is the phonetic length above which a segment is
	// considered long. Long segments match immediately or not at all, so
	// their window is bounded by 2× their own length. Default 80.
	LongSegmentRunes int `yaml:"long_segment_runes"`

	// ShortLookaheadRunes bounds the window for short segments, which may
	// follow an arbitrarily long unmatched preamble (chapter headings,
	// narrator credits). Default 2000.
	ShortLookaheadRunes int `yaml:"short_lookahead_runes"`
}

// DefaultConfig returns the default alignment tunables.
func DefaultConfig() Config {
	return Config{
		MaxDistanceDivisor:  4,
		AcceptHorizon:       1000,
		LongSegmentRunes:    80,
		ShortLookaheadRunes: 2000,
	}
}

// Matcher aligns reference-text segments against a transcript [Index].
//
// The matcher holds no cursor state: the cursor (the last accepted offset
// into the transcript buffer) is passed in and returned by every call, so
// individual alignments stay pure and testable. The cursor never decreases:
// reference text and spoken audio are assumed to proceed in the same order,
// so the engine never matches earlier in time than a previous match.
type Matcher struct {
	idx  *Index
	conv phoneme.Converter
	cfg  Config
}

// NewMatcher returns a Matcher over idx using conv for segment
// phonemization. Zero fields in cfg fall back to their defaults.
func NewMatcher(idx *Index, conv phoneme.Converter, cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.MaxDistanceDivisor <= 0 {
		cfg.MaxDistanceDivisor = def.MaxDistanceDivisor
	}
	if cfg.AcceptHorizon <= 0 {
		cfg.AcceptHorizon = def.AcceptHorizon
	}
	if cfg.LongSegmentRunes <= 0 {
		cfg.LongSegmentRunes = def.LongSegmentRunes
	}
	if cfg.ShortLookaheadRunes <= 0 {
		cfg.ShortLookaheadRunes = def.ShortLookaheadRunes
	}
	return &Matcher{idx: idx, conv: conv, cfg: cfg}
}

// AlignAll aligns every segment from segs in order, appending each outcome
// to sink, and returns the final cursor position.
func (m *Matcher) AlignAll(ctx context.Context, segs *Segmenter, sink RecordSink) (cursor int, err error) {
	for {
		seg, ok := segs.Next()
		if !ok {
			break
		}
		cursor, err = m.AlignSegment(ctx, cursor, seg, sink)
		if err != nil {
			return cursor, err
		}
	}
	if err := segs.Err(); err != nil {
		return cursor, fmt.Errorf("align: read reference text: %w", err)
	}
	return cursor, nil
}

// AlignSegment aligns a single segment starting the search at cursor and
// appends the resulting records to sink. It returns the new cursor: the end
// of the accepted match, or cursor unchanged when the segment could not be
// placed.
func (m *Matcher) AlignSegment(ctx context.Context, cursor int, seg Segment, sink RecordSink) (int, error) {
	p, err := m.conv.Convert(ctx, seg.Text)
	if err != nil {
		return cursor, fmt.Errorf("align: phonemize segment %q: %w", seg.Text, err)
	}
	pattern := []rune(phoneticUnit(p))
	n := len(pattern)

	// Bound the search window. Long segments either match right away or not
	// at all; short ones are allowed a fixed lookahead past any unmatched
	// preamble.
	windowEnd := cursor + m.cfg.ShortLookaheadRunes
	if n > m.cfg.LongSegmentRunes {
		windowEnd = cursor + 2*n
	}
	if windowEnd > m.idx.BufferLen() {
		windowEnd = m.idx.BufferLen()
	}

	var window []rune
	if cursor < windowEnd {
		window = m.idx.Buffer()[cursor:windowEnd]
	}

	for _, cand := range searchNear(pattern, window, n/m.cfg.MaxDistanceDivisor) {
		start := cursor + cand.start
		end := cursor + cand.end
		startMS := m.idx.TimeAt(start)
		endMS := m.idx.TimeAt(end)

		// Asymmetric acceptance: the true match should sit close to the
		// cursor, so candidates deep in the window are trusted only when
		// nearly exact. Rejected candidates are kept for audit.
		if float64(cand.start) >= float64(m.cfg.AcceptHorizon)*(1-float64(cand.dist)/float64(n)) {
			rec := Record{
				Kind:    KindAmbiguous,
				StartMS: startMS,
				EndMS:   endMS,
				Text:    string(pattern),
				Aux:     []string{string(m.idx.Buffer()[start:end])},
			}
			if err := sink.Append(rec); err != nil {
				return cursor, err
			}
			continue
		}

		// The transcript span skipped to reach the match carries valid
		// timestamps but no reference text.
		if cand.start != 0 {
			rec := Record{
				Kind:    KindTranscriptOnly,
				StartMS: m.idx.TimeAt(cursor),
				EndMS:   startMS,
				Text:    string(m.idx.Buffer()[cursor:start]),
			}
			if err := sink.Append(rec); err != nil {
				return cursor, err
			}
		}

		rec := Record{
			Kind:    KindMatched,
			StartMS: startMS,
			EndMS:   endMS,
			Text:    seg.Text,
			Aux:     []string{string(pattern), string(m.idx.Buffer()[start:end])},
		}
		if err := sink.Append(rec); err != nil {
			return cursor, err
		}
		slog.Debug("segment matched",
			"text", seg.Text,
			"start_ms", startMS,
			"end_ms", endMS,
			"distance", cand.dist,
			"window_offset", cand.start,
		)
		return end, nil
	}

	// Nothing accepted: the segment exists only in the reference text.
	// Degenerate timestamps, cursor stays put.
	ms := m.idx.TimeAt(cursor)
	rec := Record{
		Kind:    KindReferenceOnly,
		StartMS: ms,
		EndMS:   ms,
		Text:    seg.Text,
		Aux:     []string{string(pattern)},
	}
	if err := sink.Append(rec); err != nil {
		return cursor, err
	}
	return cursor, nil
}
