package align

import (
	"bufio"
	"io"
	"strings"
)

// Segment is one clause of reference text, produced in strict document
// order.
type Segment struct {
	Text string

	// Quoted reports whether the segment is a quoted span (dialogue).
	// Quoted spans are always emitted as their own segment so dialogue
	// boundaries survive into the training clips.
	Quoted bool
}

// Segmenter splits reference text into ordered segments. Quoted spans are
// isolated from their surrounding narration, and a line break always ends
// the current segment, so no segment ever spans a paragraph boundary.
//
// Forward-only and lazy: each call to [Segmenter.Next] does only the work
// needed to produce one segment.
type Segmenter struct {
	sc      *bufio.Scanner
	pending []Segment
	err     error
}

// NewSegmenter returns a Segmenter reading reference text from r.
func NewSegmenter(r io.Reader) *Segmenter {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Segmenter{sc: sc}
}

// Next returns the next segment in document order. ok is false when the
// text is exhausted or a read error occurred; check [Segmenter.Err].
func (s *Segmenter) Next() (seg Segment, ok bool) {
	for len(s.pending) == 0 {
		if !s.sc.Scan() {
			s.err = s.sc.Err()
			return Segment{}, false
		}
		s.pending = splitQuotes(normalizeQuotes(s.sc.Text()))
	}
	seg = s.pending[0]
	s.pending = s.pending[1:]
	return seg, true
}

// Err returns the first read error encountered, if any.
func (s *Segmenter) Err() error { return s.err }

// quoteReplacer maps typographic punctuation to its plain ASCII form so the
// quote scanner only ever has to look for '"'.
var quoteReplacer = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"„", `"`, // double low-9 quotation mark
	"«", `"`, // left guillemet
	"»", `"`, // right guillemet
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"‚", "'", // single low-9 quotation mark
	"…", "...",
)

// normalizeQuotes converts smart quotes and related typographic punctuation
// to plain equivalents.
func normalizeQuotes(line string) string {
	return quoteReplacer.Replace(line)
}

// splitQuotes splits one line into alternating narration and quoted
// segments. A quoted span always becomes its own segment regardless of
// surrounding punctuation; an unterminated quote claims the rest of the
// line.
func splitQuotes(line string) []Segment {
	var out []Segment
	text := strings.TrimSpace(line)
	for text != "" {
		switch index := strings.IndexByte(text, '"'); {
		case index == 0:
			// Quoted span: find the closing quote, keeping it with the
			// speech.
			if i := strings.IndexByte(text[1:], '"'); i != -1 {
				end := i + 2
				out = append(out, Segment{Text: text[:end], Quoted: true})
				text = text[end:]
			} else {
				out = append(out, Segment{Text: text, Quoted: true})
				text = ""
			}
		case index == -1:
			out = append(out, Segment{Text: text})
			text = ""
		default:
			out = append(out, Segment{Text: strings.TrimRight(text[:index], " \t")})
			text = text[index:]
		}
		text = strings.TrimLeft(text, " \t")
	}
	return out
}
