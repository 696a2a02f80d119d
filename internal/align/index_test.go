package align_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/phonalign/phonalign/internal/align"
	"github.com/phonalign/phonalign/internal/srt"
)

// stubConverter is an identity phoneme.Converter: the "phonetic form" of a
// text is the text itself. Alignment behaviour is independent of what the
// phonetic alphabet looks like, so identity keeps fixtures readable.
type stubConverter struct{}

func (stubConverter) Convert(_ context.Context, text string) (string, error) {
	return strings.TrimSpace(text), nil
}

func (c stubConverter) ConvertBatch(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i], _ = c.Convert(ctx, t)
	}
	return out, nil
}

// timedWord is a test fixture word with its spoken time range.
type timedWord struct {
	word       string
	start, end int
}

// srtStream renders words as the four-line transcript protocol.
func srtStream(words []timedWord) string {
	var b strings.Builder
	for i, w := range words {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, msTimestamp(w.start), msTimestamp(w.end), w.word)
	}
	return b.String()
}

func msTimestamp(ms int) string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

func buildIndex(t *testing.T, words []timedWord) *align.Index {
	t.Helper()
	r := srt.NewReader(strings.NewReader(srtStream(words)))
	idx, err := align.BuildIndex(context.Background(), r, stubConverter{}, nil)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	return idx
}

// threeWords is the fixture from the resolver scenarios: phonetic units of
// 6 runes each ("wordA " etc.), so offsets land at 0, 6, and 12.
func threeWords(times [][2]int) []timedWord {
	return []timedWord{
		{word: "wordA", start: times[0][0], end: times[0][1]},
		{word: "wordB", start: times[1][0], end: times[1][1]},
		{word: "wordC", start: times[2][0], end: times[2][1]},
	}
}

func TestBuildIndex_Monotonic(t *testing.T) {
	t.Parallel()

	words := []timedWord{
		{word: "the", start: 0, end: 300},
		{word: "quick", start: 350, end: 600},
		{word: "brown", start: 700, end: 900},
		{word: "fox", start: 1000, end: 1200},
	}
	idx := buildIndex(t, words)

	if idx.Words() != len(words) {
		t.Fatalf("Words() = %d, want %d", idx.Words(), len(words))
	}

	prevStart, prevEnd := -1, -1
	for i := 0; i < idx.Words(); i++ {
		word, start, end := idx.WordAt(i)
		if word != words[i].word {
			t.Errorf("WordAt(%d) = %q, want %q", i, word, words[i].word)
		}
		if start < prevStart || end < prevEnd {
			t.Errorf("times regressed at word %d: (%d,%d) after (%d,%d)", i, start, end, prevStart, prevEnd)
		}
		prevStart, prevEnd = start, end
	}

	// Each identity phonetic unit is the word plus one separator space.
	wantLen := 0
	for _, w := range words {
		wantLen += len(w.word) + 1
	}
	if idx.BufferLen() != wantLen {
		t.Errorf("BufferLen() = %d, want %d", idx.BufferLen(), wantLen)
	}
}

func TestBuildIndex_EmptyTranscript(t *testing.T) {
	t.Parallel()

	// An empty stream is a clean read per the protocol, but an index with no
	// words cannot anchor any timestamp lookup.
	r := srt.NewReader(strings.NewReader(""))
	if _, err := align.BuildIndex(context.Background(), r, stubConverter{}, nil); err == nil {
		t.Fatal("BuildIndex accepted a transcript with no records")
	}
}

func TestBuildIndex_Progress(t *testing.T) {
	t.Parallel()

	words := []timedWord{{word: "only", start: 0, end: 100}}
	stream := srtStream(words)

	var last int64
	r := srt.NewReader(strings.NewReader(stream))
	_, err := align.BuildIndex(context.Background(), r, stubConverter{}, func(bytes int64) {
		if bytes < last {
			t.Errorf("progress regressed: %d after %d", bytes, last)
		}
		last = bytes
	})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if last == 0 {
		t.Error("progress callback never reported consumed bytes")
	}
}

func TestTimeAt_WordStartRoundTrip(t *testing.T) {
	t.Parallel()

	words := []timedWord{
		{word: "alpha", start: 100, end: 400},
		{word: "beta", start: 500, end: 900},
		{word: "gamma", start: 1000, end: 1400},
	}
	idx := buildIndex(t, words)

	offset := 0
	for i, w := range words {
		if got := idx.TimeAt(offset); got != w.start {
			t.Errorf("TimeAt(start offset %d of word %d) = %d, want %d", offset, i, got, w.start)
		}
		offset += len(w.word) + 1
	}
}

func TestTimeAt_Boundaries(t *testing.T) {
	t.Parallel()

	idx := buildIndex(t, threeWords([][2]int{{0, 500}, {500, 900}, {900, 1400}}))

	if got := idx.TimeAt(0); got != 0 {
		t.Errorf("TimeAt(0) = %d, want first word start 0", got)
	}
	if got := idx.TimeAt(idx.BufferLen()); got != 1400 {
		t.Errorf("TimeAt(end) = %d, want last word end 1400", got)
	}
	if got := idx.TimeAt(idx.BufferLen() + 100); got != 1400 {
		t.Errorf("TimeAt(past end) = %d, want last word end 1400", got)
	}
}

func TestTimeAt_AbuttingWords(t *testing.T) {
	t.Parallel()

	// end of word 2 == start of word 3: the gap midpoint collapses to the
	// shared boundary time.
	idx := buildIndex(t, threeWords([][2]int{{0, 500}, {500, 900}, {900, 1400}}))

	if got := idx.TimeAt(9); got != 900 {
		t.Errorf("TimeAt(9) = %d, want boundary time 900", got)
	}
}

func TestTimeAt_GappedWords(t *testing.T) {
	t.Parallel()

	// 100 ms of silence between words 2 and 3: interior offsets resolve to
	// the midpoint of that silence.
	idx := buildIndex(t, threeWords([][2]int{{0, 400}, {500, 900}, {1000, 1400}}))

	if got := idx.TimeAt(9); got != 950 {
		t.Errorf("TimeAt(9) = %d, want silence midpoint 950", got)
	}
	// Offset strictly closer to the second word's start belongs to it:
	// midpoint of the silence before it.
	if got := idx.TimeAt(7); got != 450 {
		t.Errorf("TimeAt(7) = %d, want silence midpoint 450", got)
	}
}
