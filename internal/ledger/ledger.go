// Package ledger persists alignment outcomes as a line-oriented, append-only
// checkpoint file.
//
// Each alignment record becomes one logical entry: zero or more "# <text>"
// comment lines carrying the discarded alternate forms (phonetic form,
// transcript span, original reference text), then a single
// "<kind>|<start_ms>|<end_ms>|<text>" line. The file is deliberately
// human-editable: the intended workflow is to review the ledger, delete or
// fix bad matches by hand, and re-run the pipeline, which then trusts the
// edited file instead of re-aligning.
//
// Only matched ("G") lines are read back; everything else is audit trail.
package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/phonalign/phonalign/internal/align"
)

// trivialSize is the size in bytes below which an existing ledger file is
// treated as absent. Guards against trusting an empty file left behind by an
// interrupted run.
const trivialSize = 10

// ErrValidation reports that an alignment run discarded more text than it
// recovered, which almost always means mismatched inputs (wrong text file,
// wrong transcript) rather than recogniser noise.
var ErrValidation = errors.New("ledger: more text discarded than matched")

// Slice is one validated cut: a time range and the reference text spoken in
// it. This is the contract consumed by the audio splitter.
type Slice struct {
	StartMS int
	EndMS   int
	Text    string
}

// Compile-time interface check.
var _ align.RecordSink = (*Writer)(nil)

// Writer appends alignment records to a ledger file and accumulates the
// slice list and per-kind tallies as it goes. Not safe for concurrent use;
// one run owns one ledger.
type Writer struct {
	w      *bufio.Writer
	f      *os.File
	slices []Slice

	matched        int
	referenceOnly  int
	transcriptOnly int
	ambiguous      int
}

// NewWriter creates the ledger file at path, truncating any previous
// content.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: create %q: %w", path, err)
	}
	return &Writer{w: bufio.NewWriter(f), f: f}, nil
}

// Append writes one record to the ledger. Auxiliary texts become "#" comment
// lines; newlines inside any text are flattened to spaces so one record
// stays one line.
func (lw *Writer) Append(rec align.Record) error {
	for _, aux := range rec.Aux {
		if _, err := fmt.Fprintf(lw.w, "# %s\n", flatten(aux)); err != nil {
			return fmt.Errorf("ledger: write: %w", err)
		}
	}
	if _, err := fmt.Fprintf(lw.w, "%c|%d|%d|%s\n", rec.Kind.Marker(), rec.StartMS, rec.EndMS, flatten(rec.Text)); err != nil {
		return fmt.Errorf("ledger: write: %w", err)
	}

	switch rec.Kind {
	case align.KindMatched:
		lw.matched++
		lw.slices = append(lw.slices, Slice{StartMS: rec.StartMS, EndMS: rec.EndMS, Text: flatten(rec.Text)})
	case align.KindReferenceOnly:
		lw.referenceOnly++
	case align.KindTranscriptOnly:
		lw.transcriptOnly++
	case align.KindAmbiguous:
		lw.ambiguous++
	}
	return nil
}

// Slices returns the accumulated slice list: every matched record, in
// append order.
func (lw *Writer) Slices() []Slice { return lw.slices }

// Counts returns the per-kind record tallies.
func (lw *Writer) Counts() (matched, referenceOnly, transcriptOnly, ambiguous int) {
	return lw.matched, lw.referenceOnly, lw.transcriptOnly, lw.ambiguous
}

// Close flushes and closes the ledger file.
func (lw *Writer) Close() error {
	if err := lw.w.Flush(); err != nil {
		lw.f.Close()
		return fmt.Errorf("ledger: flush: %w", err)
	}
	if err := lw.f.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	return nil
}

// Validate applies the aggregate post-condition: a run that discarded more
// fragments than it matched is judged a failure. Returns [ErrValidation]
// wrapped with the tallies when the run fails.
func (lw *Writer) Validate() error {
	if lw.matched < lw.referenceOnly+lw.transcriptOnly {
		return fmt.Errorf("%w: %d matched, %d reference-only, %d transcript-only",
			ErrValidation, lw.matched, lw.referenceOnly, lw.transcriptOnly)
	}
	return nil
}

// Read parses an existing ledger file and reconstructs the slice list from
// its matched lines. Comment lines and non-matched records are skipped.
// A malformed matched line is a parse error naming the line.
func Read(path string) ([]Slice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %q: %w", path, err)
	}
	defer f.Close()

	slices, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("ledger: parse %q: %w", path, err)
	}
	return slices, nil
}

// ReadFrom is [Read] over an arbitrary reader, useful in tests.
func ReadFrom(r io.Reader) ([]Slice, error) {
	var slices []Slice
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if len(line) == 0 || line[0] != align.KindMatched.Marker() {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("line %d: expected kind|start|end|text, got %q", lineNo, line)
		}
		start, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad start time %q", lineNo, parts[1])
		}
		end, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad end time %q", lineNo, parts[2])
		}
		slices = append(slices, Slice{StartMS: start, EndMS: end, Text: parts[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return slices, nil
}

// LoadOrCompute returns the slice list for the ledger at path. When the
// file already exists and is non-trivial it is trusted and read back
// directly, so hand edits survive; otherwise compute is run with a fresh
// [Writer] to produce it.
//
// When the computed run fails aggregate validation, the ledger file is
// deleted and [ErrValidation] is returned: a checkpoint that mostly records
// failures would poison every later run.
func LoadOrCompute(ctx context.Context, path string, compute func(ctx context.Context, w *Writer) error) ([]Slice, error) {
	if fi, err := os.Stat(path); err == nil && fi.Size() > trivialSize {
		slog.Info("existing ledger found, skipping alignment", "path", path, "size", fi.Size())
		return Read(path)
	}

	w, err := NewWriter(path)
	if err != nil {
		return nil, err
	}
	if err := compute(ctx, w); err != nil {
		w.Close()
		os.Remove(path)
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	if err := w.Validate(); err != nil {
		matched, refOnly, trOnly, _ := w.Counts()
		slog.Error("alignment failed more than it succeeded; wrong text file? wrong transcript?",
			"matched", matched,
			"reference_only", refOnly,
			"transcript_only", trOnly,
		)
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, errors.Join(err, fmt.Errorf("ledger: remove %q: %w", path, rmErr))
		}
		return nil, err
	}
	return w.Slices(), nil
}

// flatten replaces newlines with spaces so multi-line text cannot break the
// one-record-one-line format.
func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}
