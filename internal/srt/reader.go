// Package srt reads the word-level timestamped transcript produced by the
// external speech recogniser.
//
// The recogniser is run with one word per subtitle record, so the stream is a
// strict four-line protocol repeated to end of file:
//
//	1
//	00:00:10,440 --> 00:00:11,310
//	word
//	<blank>
//
// The reader enforces the protocol rather than tolerating deviations: the
// producer writes this format mechanically, so any violation means the file
// is truncated, corrupted, or not the file the caller thinks it is. All
// protocol errors are fatal for the run.
package srt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol violations. Both are wrapped with the offending line number;
// test with [errors.Is].
var (
	// ErrSync reports a record counter mismatch or an unexpected non-blank
	// separator line: the reader and the stream have lost step.
	ErrSync = errors.New("srt: synchronization error")

	// ErrFormat reports a malformed record body, such as a word line
	// containing whitespace or an unparseable timestamp.
	ErrFormat = errors.New("srt: format error")
)

// Record is one word of the transcript with its spoken time range.
type Record struct {
	// Index is the 1-based record counter from the stream.
	Index int

	// StartMS and EndMS bound the spoken word in milliseconds from the
	// start of the recording.
	StartMS int
	EndMS   int

	// Word is the recognised word. Never contains whitespace.
	Word string
}

// Reader decodes transcript records from a stream. Not safe for concurrent
// use; the transcript is ingested by a single goroutine.
type Reader struct {
	sc    *bufio.Scanner
	count int // records returned so far
	line  int // current line number, for error positions
	bytes int64
}

// NewReader returns a Reader decoding records from r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{sc: sc}
}

// BytesRead reports how many bytes of the stream have been consumed so far.
// Used for progress reporting only.
func (r *Reader) BytesRead() int64 { return r.bytes }

// Next returns the next record, or [io.EOF] when the stream is exhausted.
// Any other error is a fatal protocol violation.
func (r *Reader) Next() (Record, error) {
	// Counter line. EOF here is a clean end of stream.
	line, ok := r.scan()
	if !ok {
		if err := r.sc.Err(); err != nil {
			return Record{}, fmt.Errorf("srt: read: %w", err)
		}
		return Record{}, io.EOF
	}
	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return Record{}, fmt.Errorf("%w: line %d: expected record counter, got %q", ErrSync, r.line, line)
	}
	if index != r.count+1 {
		return Record{}, fmt.Errorf("%w: line %d: record counter %d, expected %d", ErrSync, r.line, index, r.count+1)
	}

	// Timestamp line: "HH:MM:SS,mmm --> HH:MM:SS,mmm".
	line, ok = r.scan()
	if !ok {
		return Record{}, fmt.Errorf("%w: line %d: stream ended inside record %d", ErrSync, r.line, index)
	}
	startRaw, endRaw, found := strings.Cut(line, " --> ")
	if !found {
		return Record{}, fmt.Errorf("%w: line %d: expected timestamp range, got %q", ErrFormat, r.line, line)
	}
	start, err := ParseTimestamp(strings.TrimSpace(startRaw))
	if err != nil {
		return Record{}, fmt.Errorf("%w: line %d: %v", ErrFormat, r.line, err)
	}
	end, err := ParseTimestamp(strings.TrimSpace(endRaw))
	if err != nil {
		return Record{}, fmt.Errorf("%w: line %d: %v", ErrFormat, r.line, err)
	}

	// Word line: exactly one word, no interior whitespace.
	line, ok = r.scan()
	if !ok {
		return Record{}, fmt.Errorf("%w: line %d: stream ended inside record %d", ErrSync, r.line, index)
	}
	word := strings.TrimRight(line, "\r")
	if strings.ContainsAny(word, " \t") {
		return Record{}, fmt.Errorf("%w: line %d: word %q contains whitespace", ErrFormat, r.line, word)
	}

	// Separator line. EOF after the word is tolerated so a stream without a
	// trailing newline still yields its last record.
	if line, ok = r.scan(); ok && strings.TrimSpace(line) != "" {
		return Record{}, fmt.Errorf("%w: line %d: expected blank separator, got %q", ErrSync, r.line, line)
	}

	r.count++
	return Record{Index: index, StartMS: start, EndMS: end, Word: word}, nil
}

func (r *Reader) scan() (string, bool) {
	if !r.sc.Scan() {
		return "", false
	}
	r.line++
	r.bytes += int64(len(r.sc.Bytes())) + 1 // +1 for the newline
	return r.sc.Text(), true
}

// ParseTimestamp converts an SRT timestamp of the form "HH:MM:SS,mmm" to
// milliseconds.
func ParseTimestamp(s string) (int, error) {
	if len(s) < 12 || s[2] != ':' || s[5] != ':' || s[8] != ',' {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	hours, err1 := strconv.Atoi(s[0:2])
	minutes, err2 := strconv.Atoi(s[3:5])
	seconds, err3 := strconv.Atoi(s[6:8])
	millis, err4 := strconv.Atoi(s[9:12])
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	return ((hours*60+minutes)*60+seconds)*1000 + millis, nil
}
