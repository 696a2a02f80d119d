package align_test

import (
	"context"
	"strings"
	"testing"

	"github.com/phonalign/phonalign/internal/align"
)

// recordingSink captures appended records in order.
type recordingSink struct {
	records []align.Record
}

func (s *recordingSink) Append(rec align.Record) error {
	s.records = append(s.records, rec)
	return nil
}

// fiveWords is the shared matcher fixture. With the identity converter the
// transcript buffer is "the quick brown fox jumps " and word units start at
// offsets 0, 4, 10, 16, and 20.
func fiveWords() []timedWord {
	return []timedWord{
		{word: "the", start: 0, end: 300},
		{word: "quick", start: 350, end: 600},
		{word: "brown", start: 700, end: 900},
		{word: "fox", start: 1000, end: 1200},
		{word: "jumps", start: 1300, end: 1500},
	}
}

func newMatcher(t *testing.T, cfg align.Config) *align.Matcher {
	t.Helper()
	return align.NewMatcher(buildIndex(t, fiveWords()), stubConverter{}, cfg)
}

func TestAlignSegment_MatchAtCursor(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, align.Config{})
	sink := &recordingSink{}

	cursor, err := m.AlignSegment(context.Background(), 0, align.Segment{Text: "the quick"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	if cursor != 10 {
		t.Errorf("cursor = %d, want 10 (end of matched span)", cursor)
	}
	if len(sink.records) != 1 {
		t.Fatalf("got %d records %v, want 1", len(sink.records), sink.records)
	}
	rec := sink.records[0]
	if rec.Kind != align.KindMatched {
		t.Errorf("Kind = %v, want Matched", rec.Kind)
	}
	if rec.Text != "the quick" {
		t.Errorf("Text = %q, want reference text", rec.Text)
	}
	if rec.StartMS != 0 || rec.EndMS != 700 {
		t.Errorf("times = (%d,%d), want (0,700)", rec.StartMS, rec.EndMS)
	}
}

func TestAlignSegment_SkippedTranscriptSpan(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, align.Config{})
	sink := &recordingSink{}

	// "brown fox" sits past two unreferenced transcript words.
	cursor, err := m.AlignSegment(context.Background(), 0, align.Segment{Text: "brown fox"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	if cursor != 20 {
		t.Errorf("cursor = %d, want 20", cursor)
	}
	if len(sink.records) != 2 {
		t.Fatalf("got %d records %v, want 2", len(sink.records), sink.records)
	}

	skipped := sink.records[0]
	if skipped.Kind != align.KindTranscriptOnly {
		t.Errorf("first record kind = %v, want TranscriptOnly", skipped.Kind)
	}
	if skipped.StartMS != 0 || skipped.EndMS != 700 {
		t.Errorf("skipped span times = (%d,%d), want (0,700)", skipped.StartMS, skipped.EndMS)
	}
	if strings.TrimSpace(skipped.Text) != "the quick" {
		t.Errorf("skipped span text = %q, want the skipped transcript words", skipped.Text)
	}

	matched := sink.records[1]
	if matched.Kind != align.KindMatched {
		t.Errorf("second record kind = %v, want Matched", matched.Kind)
	}
	if matched.StartMS != 700 || matched.EndMS != 1300 {
		t.Errorf("matched times = (%d,%d), want (700,1300)", matched.StartMS, matched.EndMS)
	}
}

func TestAlignSegment_NoMatchKeepsCursor(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, align.Config{})
	sink := &recordingSink{}

	cursor, err := m.AlignSegment(context.Background(), 0, align.Segment{Text: "zebra unicorn"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	if cursor != 0 {
		t.Errorf("cursor = %d, want unchanged 0", cursor)
	}
	if len(sink.records) != 1 {
		t.Fatalf("got %d records %v, want 1", len(sink.records), sink.records)
	}
	rec := sink.records[0]
	if rec.Kind != align.KindReferenceOnly {
		t.Errorf("Kind = %v, want ReferenceOnly", rec.Kind)
	}
	if rec.StartMS != rec.EndMS {
		t.Errorf("times = (%d,%d), want a degenerate range", rec.StartMS, rec.EndMS)
	}
	if rec.Text != "zebra unicorn" {
		t.Errorf("Text = %q, want reference text", rec.Text)
	}
}

func TestAlignSegment_DistantMatchIsAmbiguous(t *testing.T) {
	t.Parallel()

	// With a tiny horizon even an exact match ten runes into the window is
	// too far from the cursor to trust.
	m := newMatcher(t, align.Config{AcceptHorizon: 5})
	sink := &recordingSink{}

	cursor, err := m.AlignSegment(context.Background(), 0, align.Segment{Text: "brown fox"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	if cursor != 0 {
		t.Errorf("cursor = %d, want unchanged 0", cursor)
	}
	if len(sink.records) != 2 {
		t.Fatalf("got %d records %v, want ambiguous then reference-only", len(sink.records), sink.records)
	}
	if sink.records[0].Kind != align.KindAmbiguous {
		t.Errorf("first record kind = %v, want Ambiguous", sink.records[0].Kind)
	}
	if sink.records[0].StartMS != 700 || sink.records[0].EndMS != 1300 {
		t.Errorf("ambiguous times = (%d,%d), want (700,1300)", sink.records[0].StartMS, sink.records[0].EndMS)
	}
	if sink.records[1].Kind != align.KindReferenceOnly {
		t.Errorf("second record kind = %v, want ReferenceOnly", sink.records[1].Kind)
	}
}

func TestAlignSegment_LongSegmentWindowBound(t *testing.T) {
	t.Parallel()

	// A segment counted as long only gets a window of twice its own length,
	// so a match past that bound is never seen.
	m := newMatcher(t, align.Config{LongSegmentRunes: 5})
	sink := &recordingSink{}

	cursor, err := m.AlignSegment(context.Background(), 0, align.Segment{Text: "fox jumps"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	if cursor != 0 {
		t.Errorf("cursor = %d, want unchanged 0", cursor)
	}
	if len(sink.records) != 1 || sink.records[0].Kind != align.KindReferenceOnly {
		t.Fatalf("records = %v, want a single ReferenceOnly", sink.records)
	}

	// The same segment under the default window bound matches.
	sink = &recordingSink{}
	cursor, err = newMatcher(t, align.Config{}).AlignSegment(context.Background(), 0, align.Segment{Text: "fox jumps"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	if cursor != 26 {
		t.Errorf("cursor = %d, want 26", cursor)
	}
	if len(sink.records) != 2 || sink.records[1].Kind != align.KindMatched {
		t.Fatalf("records = %v, want skipped span then Matched", sink.records)
	}
}

func TestAlignAll_CursorMonotonic(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, align.Config{})
	sink := &recordingSink{}
	segs := align.NewSegmenter(strings.NewReader("the quick\nbrown fox\njumps\n"))

	cursor, err := m.AlignAll(context.Background(), segs, sink)
	if err != nil {
		t.Fatalf("AlignAll: %v", err)
	}
	if cursor != 26 {
		t.Errorf("final cursor = %d, want 26", cursor)
	}

	var matched int
	lastEnd := -1
	for _, rec := range sink.records {
		if rec.Kind != align.KindMatched {
			continue
		}
		matched++
		if rec.StartMS < lastEnd {
			t.Errorf("matched record %q starts at %d before previous end %d", rec.Text, rec.StartMS, lastEnd)
		}
		lastEnd = rec.EndMS
	}
	if matched != 3 {
		t.Errorf("matched %d segments, want 3", matched)
	}
}

func TestAlignAll_EarlierOccurrenceNeverRevisited(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, align.Config{})
	sink := &recordingSink{}

	// After matching "brown fox" the cursor is at 20; "the quick" now only
	// exists before the cursor and must come back reference-only.
	cursor, err := m.AlignSegment(context.Background(), 0, align.Segment{Text: "brown fox"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	cursor, err = m.AlignSegment(context.Background(), cursor, align.Segment{Text: "the quick"}, sink)
	if err != nil {
		t.Fatalf("AlignSegment: %v", err)
	}
	if cursor != 20 {
		t.Errorf("cursor = %d, want 20", cursor)
	}
	last := sink.records[len(sink.records)-1]
	if last.Kind != align.KindReferenceOnly {
		t.Errorf("last record kind = %v, want ReferenceOnly", last.Kind)
	}
}
