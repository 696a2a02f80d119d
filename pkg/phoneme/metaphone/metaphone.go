// Package metaphone implements [phoneme.Converter] in-process using Double
// Metaphone encoding.
//
// Metaphone codes are much coarser than IPA (they collapse vowels and many
// consonant distinctions) but they share the property the aligner actually
// needs: words that sound alike encode alike. The backend requires no
// external binary, which makes it the right choice for offline environments
// and for deterministic tests.
package metaphone

import (
	"context"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/phonalign/phonalign/pkg/phoneme"
)

// Compile-time interface check.
var _ phoneme.Converter = (*Converter)(nil)

// Converter encodes text with Double Metaphone, word by word.
// Safe for concurrent use; it holds no state.
type Converter struct{}

// New returns a new [Converter].
func New() *Converter {
	return &Converter{}
}

// Convert encodes each whitespace-separated word of text with Double
// Metaphone (primary code) and joins the codes with single spaces. Words that
// produce an empty code (digits, bare punctuation) are passed through
// lowercased so they still occupy buffer space proportional to their length.
func (c *Converter) Convert(_ context.Context, text string) (string, error) {
	fields := strings.Fields(text)
	codes := make([]string, 0, len(fields))
	for _, f := range fields {
		primary, _ := matchr.DoubleMetaphone(f)
		if primary == "" {
			primary = strings.ToLower(f)
		}
		codes = append(codes, primary)
	}
	return strings.Join(codes, " "), nil
}

// ConvertBatch converts texts sequentially and returns the results in input
// order. Encoding is pure CPU work; there is nothing to overlap.
func (c *Converter) ConvertBatch(ctx context.Context, texts []string) ([]string, error) {
	results := make([]string, len(texts))
	for i, t := range texts {
		p, err := c.Convert(ctx, t)
		if err != nil {
			return nil, err
		}
		results[i] = p
	}
	return results, nil
}
