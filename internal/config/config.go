// Package config provides the configuration schema and loader for phonalign.
package config

import "github.com/phonalign/phonalign/internal/align"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// PhonemeBackend selects the phonetic conversion backend.
type PhonemeBackend string

const (
	// BackendEspeak drives the espeak-ng binary and produces IPA.
	BackendEspeak PhonemeBackend = "espeak"

	// BackendMetaphone encodes in-process with Double Metaphone. Coarser,
	// but needs no external binary.
	BackendMetaphone PhonemeBackend = "metaphone"
)

// IsValid reports whether b is a recognised backend.
func (b PhonemeBackend) IsValid() bool {
	return b == BackendEspeak || b == BackendMetaphone
}

// Config is the root configuration structure for phonalign.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is an optional TCP address (e.g., ":9091") on which a
	// Prometheus /metrics endpoint is served for the duration of the run.
	// Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// FFmpegPath is the ffmpeg executable used by the audio splitter.
	// Default: "ffmpeg" resolved from PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Phoneme configures the phonetic conversion backend.
	Phoneme PhonemeConfig `yaml:"phoneme"`

	// Align holds the alignment tunables. The defaults were calibrated
	// against English audiobooks; see the field docs in [align.Config]
	// before changing them for another corpus.
	Align align.Config `yaml:"align"`
}

// PhonemeConfig configures the phonetic conversion backend.
type PhonemeConfig struct {
	// Backend selects the converter implementation. Default: espeak.
	Backend PhonemeBackend `yaml:"backend"`

	// Binary overrides the espeak-ng executable path. Ignored by the
	// metaphone backend.
	Binary string `yaml:"binary"`

	// Voice is the espeak-ng voice. Default: "en-us".
	Voice string `yaml:"voice"`

	// Workers bounds concurrent espeak-ng processes during batch
	// conversion. 0 means one per CPU.
	Workers int `yaml:"workers"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel:   LogInfo,
		FFmpegPath: "ffmpeg",
		Phoneme: PhonemeConfig{
			Backend: BackendEspeak,
			Voice:   "en-us",
		},
		Align: align.DefaultConfig(),
	}
}
