// Package phoneme defines the phonetic conversion interface used by the
// alignment engine. Matching reference text against a speech-recognised
// transcript works far better on pronunciation than on spelling: recognition
// errors ("there" vs "their", "Kathryn" vs "Catherine") mostly disappear once
// both sides are reduced to phonetic form.
//
// The conversion itself is delegated to an external engine. Two backends ship
// with phonalign:
//
//   - [github.com/phonalign/phonalign/pkg/phoneme/espeak] drives the
//     espeak-ng binary and produces IPA. This is the accurate option and the
//     default.
//   - [github.com/phonalign/phonalign/pkg/phoneme/metaphone] encodes text
//     in-process with Double Metaphone. Coarser, but dependency-free and
//     fully deterministic, useful offline and in tests.
//
// Implementations must be deterministic and side-effect-free: the same input
// text must always yield the same phonetic string, because the ledger written
// from one run has to be reproducible on the next.
package phoneme

import "context"

// Converter turns a unit of text into its phonetic representation.
//
// Implementations must be safe for concurrent use.
type Converter interface {
	// Convert returns the phonetic form of text. The result carries no
	// leading or trailing whitespace.
	Convert(ctx context.Context, text string) (string, error)

	// ConvertBatch converts many units in one call and returns the results
	// in input order. It exists because converting an audiobook means one
	// call per transcript word (tens of thousands of units) and backends
	// that spawn a process per unit want to overlap those spawns.
	ConvertBatch(ctx context.Context, texts []string) ([]string, error)
}
