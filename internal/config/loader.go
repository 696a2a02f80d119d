package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. A missing file is not an error: every field has a usable
// default, so the loader returns [Default] when path does not exist.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for unset
// fields, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Phoneme.Backend != "" && !cfg.Phoneme.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("phoneme.backend %q is invalid; valid values: espeak, metaphone", cfg.Phoneme.Backend))
	}
	if cfg.Phoneme.Workers < 0 {
		errs = append(errs, fmt.Errorf("phoneme.workers %d is invalid; must be >= 0", cfg.Phoneme.Workers))
	}
	if cfg.Align.MaxDistanceDivisor < 0 {
		errs = append(errs, fmt.Errorf("align.max_distance_divisor %d is invalid; must be >= 0", cfg.Align.MaxDistanceDivisor))
	}
	if cfg.Align.AcceptHorizon < 0 {
		errs = append(errs, fmt.Errorf("align.accept_horizon %d is invalid; must be >= 0", cfg.Align.AcceptHorizon))
	}
	if cfg.Align.LongSegmentRunes < 0 {
		errs = append(errs, fmt.Errorf("align.long_segment_runes %d is invalid; must be >= 0", cfg.Align.LongSegmentRunes))
	}
	if cfg.Align.ShortLookaheadRunes < 0 {
		errs = append(errs, fmt.Errorf("align.short_lookahead_runes %d is invalid; must be >= 0", cfg.Align.ShortLookaheadRunes))
	}

	return errors.Join(errs...)
}
