package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/phonalign/phonalign/internal/observe"
	"github.com/phonalign/phonalign/internal/pipeline"
)

var (
	textPath       string
	transcriptPath string
	ledgerPath     string
	stopAfter      string
)

var runCmd = &cobra.Command{
	Use:   "run AUDIOBOOK",
	Short: "Run the alignment pipeline against an audiobook",
	Long: `Run ingests the transcript, aligns the reference text against it, and cuts
the audio into clips.

The reference text, transcript, and ledger paths default to the audiobook
path with .txt, .srt, and .csv extensions respectively. An existing
non-trivial ledger is trusted and alignment is skipped; delete it to force
a fresh alignment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context(), args[0])
	},
}

func runPipeline(ctx context.Context, audioPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		AudioPath:      audioPath,
		TextPath:       textPath,
		TranscriptPath: transcriptPath,
		LedgerPath:     ledgerPath,
		StopAfter:      pipeline.Stage(stopAfter),
	}
	if opts.StopAfter != "" && !opts.StopAfter.IsValid() {
		return fmt.Errorf("invalid --stop-after %q; valid values: align, split", stopAfter)
	}
	if opts.TextPath == "" {
		opts.TextPath = withExt(audioPath, ".txt")
	}
	if opts.TranscriptPath == "" {
		opts.TranscriptPath = withExt(audioPath, ".srt")
	}
	if opts.LedgerPath == "" {
		opts.LedgerPath = withExt(audioPath, ".csv")
	}

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	slog.Info("phonalign starting",
		"audiobook", opts.AudioPath,
		"text", opts.TextPath,
		"transcript", opts.TranscriptPath,
		"ledger", opts.LedgerPath,
	)

	return pipeline.New(cfg, buildConverter()).Run(ctx, opts)
}

// serveMetrics exposes the Prometheus /metrics endpoint for the duration of
// the run. Failures are logged, not fatal.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics endpoint error", "err", err)
	}
}

// withExt swaps the extension of path.
func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func init() {
	runCmd.Flags().StringVar(&textPath, "text", "", "reference text file (default: audiobook path with .txt)")
	runCmd.Flags().StringVar(&transcriptPath, "transcript", "", "word-level SRT transcript (default: audiobook path with .srt)")
	runCmd.Flags().StringVar(&ledgerPath, "ledger", "", "alignment ledger file (default: audiobook path with .csv)")
	runCmd.Flags().StringVar(&stopAfter, "stop-after", "", "stop after the named stage: align or split")
	rootCmd.AddCommand(runCmd)
}
