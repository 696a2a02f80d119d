package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phonalign/phonalign/internal/config"
	"github.com/phonalign/phonalign/pkg/phoneme"
	"github.com/phonalign/phonalign/pkg/phoneme/espeak"
	"github.com/phonalign/phonalign/pkg/phoneme/metaphone"
)

var (
	configPath string
	verbose    bool
	quiet      bool

	// cfg is loaded by the root PersistentPreRunE and read by subcommands.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "phonalign",
	Short: "Split an audiobook into labelled training clips using its ebook text",
	Long: `Phonalign recovers accurate timing for a clean reference text (an ebook)
by phonetically aligning it against a word-level timestamped transcript of
the spoken rendition, then cuts the audio into one clip per matched segment.

The transcript is produced externally by a speech recogniser emitting one
word per subtitle record. Alignment writes a human-editable ledger file that
doubles as a checkpoint: edit it to fix bad matches, then re-run to slice.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogging()
		return nil
	},
}

func setupLogging() {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case config.LogDebug:
		level = slog.LevelDebug
	case config.LogWarn:
		level = slog.LevelWarn
	case config.LogError:
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// buildConverter constructs the configured phonetic conversion backend.
func buildConverter() phoneme.Converter {
	if cfg.Phoneme.Backend == config.BackendMetaphone {
		slog.Info("phoneme backend", "name", "metaphone")
		return metaphone.New()
	}

	var opts []espeak.Option
	if cfg.Phoneme.Binary != "" {
		opts = append(opts, espeak.WithBinary(cfg.Phoneme.Binary))
	}
	if cfg.Phoneme.Voice != "" {
		opts = append(opts, espeak.WithVoice(cfg.Phoneme.Voice))
	}
	if cfg.Phoneme.Workers > 0 {
		opts = append(opts, espeak.WithWorkers(cfg.Phoneme.Workers))
	}
	slog.Info("phoneme backend", "name", "espeak", "voice", cfg.Phoneme.Voice)
	return espeak.New(opts...)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "phonalign.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
}
