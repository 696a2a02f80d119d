// Package espeak implements [phoneme.Converter] by driving the espeak-ng
// binary, one process per unit of text.
//
// espeak-ng buffers and re-chunks its input unpredictably when fed many lines
// through a single pipe, so the only reliable contract is one process per
// unit. That makes a single conversion cheap but a whole book expensive;
// [Converter.ConvertBatch] therefore fans units out over a bounded worker
// pool while preserving input order.
package espeak

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/phonalign/phonalign/pkg/phoneme"
)

// Compile-time interface check.
var _ phoneme.Converter = (*Converter)(nil)

const (
	defaultBinary = "espeak-ng"
	defaultVoice  = "en-us"
)

// Option is a functional option for configuring a [Converter].
type Option func(*Converter)

// WithBinary overrides the espeak-ng executable path. Default: "espeak-ng"
// resolved from PATH.
func WithBinary(path string) Option {
	return func(c *Converter) {
		c.binary = path
	}
}

// WithVoice sets the espeak-ng voice used for conversion. Default: "en-us".
func WithVoice(voice string) Option {
	return func(c *Converter) {
		c.voice = voice
	}
}

// WithWorkers sets the number of concurrent espeak-ng processes used by
// [Converter.ConvertBatch]. Values below 1 are ignored.
// Default: [runtime.GOMAXPROCS].
func WithWorkers(n int) Option {
	return func(c *Converter) {
		if n >= 1 {
			c.workers = n
		}
	}
}

// Converter converts text to IPA by invoking espeak-ng.
// All methods are safe for concurrent use; the Converter is read-only after
// construction.
type Converter struct {
	binary  string
	voice   string
	workers int
}

// New returns a new [Converter] configured with the supplied options.
func New(opts ...Option) *Converter {
	c := &Converter{
		binary:  defaultBinary,
		voice:   defaultVoice,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Convert runs one espeak-ng process for text and returns the IPA output
// with surrounding whitespace removed.
func (c *Converter) Convert(ctx context.Context, text string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, "-q", "--ipa", "-v", c.voice, "--", text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("espeak: %s %q: %w: %s", c.binary, text, err, msg)
		}
		return "", fmt.Errorf("espeak: %s %q: %w", c.binary, text, err)
	}

	// espeak-ng emits one line per clause; rejoin multi-clause output with
	// single spaces so the result stays a flat phonetic string.
	return strings.Join(strings.Fields(stdout.String()), " "), nil
}

// ConvertBatch converts texts concurrently over the configured worker pool
// and returns results in input order. The first process failure cancels the
// remaining conversions.
func (c *Converter) ConvertBatch(ctx context.Context, texts []string) ([]string, error) {
	results := make([]string, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			p, err := c.Convert(ctx, text)
			if err != nil {
				return err
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
