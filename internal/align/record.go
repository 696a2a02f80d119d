// Package align implements the phonetic alignment engine: it matches
// reference-text segments against the phonetic transcript buffer, resolves
// buffer offsets back into millisecond timestamps, and classifies every
// outcome for the ledger.
package align

import "fmt"

// RecordKind classifies the outcome of aligning one unit of text.
type RecordKind int

const (
	// KindMatched means a reference segment was located in the transcript
	// with acceptable edit distance. Only matched records contribute to the
	// slice list.
	KindMatched RecordKind = iota

	// KindReferenceOnly means a reference segment could not be located in
	// the transcript. Its timestamps are degenerate (start == end) and the
	// cursor does not advance.
	KindReferenceOnly

	// KindTranscriptOnly means a transcript span was skipped over to reach
	// an accepted match. The span has valid timestamps but no reference
	// text: typically narrator credits, disclaimers, or chapter noise.
	KindTranscriptOnly

	// KindAmbiguous means a fuzzy-search candidate was rejected for sitting
	// too deep in the search window. Kept for audit; the scan continues.
	KindAmbiguous
)

// Ledger markers. The single-letter codes are the on-disk format and are
// stable: existing ledgers must keep loading across releases.
const (
	markerMatched        = 'G'
	markerReferenceOnly  = 'B'
	markerTranscriptOnly = 'S'
	markerAmbiguous      = 'M'
)

// Marker returns the single-letter ledger code for k.
func (k RecordKind) Marker() byte {
	switch k {
	case KindMatched:
		return markerMatched
	case KindReferenceOnly:
		return markerReferenceOnly
	case KindTranscriptOnly:
		return markerTranscriptOnly
	case KindAmbiguous:
		return markerAmbiguous
	}
	panic(fmt.Sprintf("align: unknown record kind %d", int(k)))
}

// String returns a human-readable name for k.
func (k RecordKind) String() string {
	switch k {
	case KindMatched:
		return "matched"
	case KindReferenceOnly:
		return "reference-only"
	case KindTranscriptOnly:
		return "transcript-only"
	case KindAmbiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseMarker returns the kind encoded by the ledger marker c.
func ParseMarker(c byte) (RecordKind, bool) {
	switch c {
	case markerMatched:
		return KindMatched, true
	case markerReferenceOnly:
		return KindReferenceOnly, true
	case markerTranscriptOnly:
		return KindTranscriptOnly, true
	case markerAmbiguous:
		return KindAmbiguous, true
	}
	return 0, false
}

// Record is one alignment outcome.
type Record struct {
	Kind    RecordKind
	StartMS int
	EndMS   int

	// Text is the primary text of the record. For matched and
	// reference-only records this is the original reference text; for
	// transcript-only records the skipped phonetic span; for ambiguous
	// records the phonetic form of the segment.
	Text string

	// Aux carries the discarded alternate forms of the same text (phonetic,
	// transcript span, …) for human audit of the ledger. May be empty.
	Aux []string
}

// RecordSink receives alignment records as they are produced, in order.
type RecordSink interface {
	Append(rec Record) error
}
