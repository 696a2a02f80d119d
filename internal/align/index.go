package align

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/phonalign/phonalign/internal/srt"
	"github.com/phonalign/phonalign/pkg/phoneme"
)

// Index is the in-memory phonetic form of the whole transcript: a single
// concatenated buffer of phonetic runes plus parallel tables mapping each
// word's buffer offset to its spoken time range. Read-only after
// [BuildIndex] returns.
type Index struct {
	buf []rune

	// Parallel per-word tables, ordered by appearance. offsets[i] is the
	// rune offset of word i's first phonetic character in buf; both offsets
	// and times are non-decreasing.
	offsets []int
	starts  []int // ms
	ends    []int // ms
	words   []string
}

// BuildIndex ingests the whole transcript stream from r, converting each
// word to phonetic form through conv. Words are converted in batches so the
// converter can overlap external process spawns.
//
// A stream with no records is an error: every later offset-to-time lookup
// needs at least one word to anchor against, and an empty transcript means
// the recogniser produced nothing for this audio.
//
// progress, when non-nil, is called periodically with the number of bytes
// consumed from the stream.
func BuildIndex(ctx context.Context, r *srt.Reader, conv phoneme.Converter, progress func(bytes int64)) (*Index, error) {
	var records []srt.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		if progress != nil && len(records)%512 == 0 {
			progress(r.BytesRead())
		}
	}
	if progress != nil {
		progress(r.BytesRead())
	}
	if len(records) == 0 {
		return nil, errors.New("align: transcript contains no records")
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Word
	}
	phonetics, err := conv.ConvertBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("align: phonemize transcript: %w", err)
	}

	idx := &Index{
		offsets: make([]int, 0, len(records)),
		starts:  make([]int, 0, len(records)),
		ends:    make([]int, 0, len(records)),
		words:   make([]string, 0, len(records)),
	}
	for i, rec := range records {
		idx.offsets = append(idx.offsets, len(idx.buf))
		idx.starts = append(idx.starts, rec.StartMS)
		idx.ends = append(idx.ends, rec.EndMS)
		idx.words = append(idx.words, rec.Word)
		idx.buf = append(idx.buf, []rune(phoneticUnit(phonetics[i]))...)
	}
	return idx, nil
}

// phoneticUnit normalises one converted unit for the buffer: surrounding
// whitespace trimmed, exactly one trailing space so adjacent units never fuse
// into a false match.
func phoneticUnit(p string) string {
	return strings.TrimSpace(p) + " "
}

// Words returns the number of transcript words in the index.
func (idx *Index) Words() int { return len(idx.offsets) }

// BufferLen returns the length of the phonetic buffer in runes.
func (idx *Index) BufferLen() int { return len(idx.buf) }

// Buffer returns the phonetic buffer. Callers must not modify it.
func (idx *Index) Buffer() []rune { return idx.buf }

// WordAt returns the original transcript word i and its time range.
func (idx *Index) WordAt(i int) (word string, startMS, endMS int) {
	return idx.words[i], idx.starts[i], idx.ends[i]
}

// TimeAt resolves a buffer offset to a millisecond timestamp.
//
// Boundary policy: offsets at or before the first word resolve to the first
// word's start; offsets past the last word's start resolve to the last
// word's end. An interior offset is attributed to whichever neighbouring
// word's start it is closer to (ties go to the following word), and the
// returned time is the midpoint of the assumed silence between the attributed
// word and the one before it.
func (idx *Index) TimeAt(offset int) int {
	pos := sort.SearchInts(idx.offsets, offset)
	// An exact word start is not a gap: it resolves to that word's own
	// start time.
	if pos < len(idx.offsets) && idx.offsets[pos] == offset {
		return idx.starts[pos]
	}
	if pos == 0 {
		return idx.starts[0]
	}
	if pos == len(idx.offsets) {
		return idx.ends[len(idx.ends)-1]
	}
	// Strictly closer to the preceding word's start: the offset sits inside
	// that word, so attribute it there.
	if offset-idx.offsets[pos-1] < idx.offsets[pos]-offset {
		pos--
	}
	if pos == 0 {
		return idx.starts[0]
	}
	// Midpoint of the silence between word pos-1 and word pos.
	prevEnd := idx.ends[pos-1]
	return prevEnd + (idx.starts[pos]-prevEnd)/2
}
