// Package splitter cuts the source audio into one clip per validated slice
// by driving the external ffmpeg binary.
//
// Audio is stream-copied, never re-encoded: cut points land on frame
// boundaries anyway, and a training corpus is better served by bit-identical
// audio than by exact millisecond edges. Each clip is numbered and its
// reference text appended to a metadata file, which doubles as the resume
// point: re-running against a directory that already holds clips continues
// the numbering instead of overwriting.
package splitter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phonalign/phonalign/internal/ledger"
)

const (
	metadataName = "metadata-all.csv"
	ffmpegLog    = "ffmpeg_log.txt"
)

// Option is a functional option for configuring a [Splitter].
type Option func(*Splitter)

// WithFFmpeg overrides the ffmpeg executable path. Default: "ffmpeg"
// resolved from PATH.
func WithFFmpeg(path string) Option {
	return func(s *Splitter) {
		s.ffmpeg = path
	}
}

// Splitter cuts audio files according to a slice list.
type Splitter struct {
	ffmpeg string
}

// New returns a Splitter configured with the supplied options.
func New(opts ...Option) *Splitter {
	s := &Splitter{ffmpeg: "ffmpeg"}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Split cuts audioPath into one numbered clip per slice, writing clips next
// to the source file and appending "<n>|<text>" lines to metadata-all.csv in
// the same directory. Numbering continues from an existing metadata file.
//
// Returns the total clip count after this run (offset + len(slices)).
func (s *Splitter) Split(ctx context.Context, audioPath string, slices []ledger.Slice) (int, error) {
	dir := filepath.Dir(audioPath)
	ext := filepath.Ext(audioPath)

	offset, err := metadataOffset(filepath.Join(dir, metadataName))
	if err != nil {
		return 0, err
	}

	meta, err := os.OpenFile(filepath.Join(dir, metadataName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("splitter: open metadata: %w", err)
	}
	defer meta.Close()

	logFile, err := os.OpenFile(filepath.Join(dir, ffmpegLog), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("splitter: open ffmpeg log: %w", err)
	}
	defer logFile.Close()

	for i, slice := range slices {
		n := offset + i + 1
		out := filepath.Join(dir, strconv.Itoa(n)+ext)

		// Cut points are input options so ffmpeg seeks before demuxing;
		// stream copy keeps the audio bytes untouched.
		cmd := exec.CommandContext(ctx, s.ffmpeg,
			"-y", "-hide_banner", "-loglevel", "info",
			"-ss", fmt.Sprintf("%dms", slice.StartMS),
			"-to", fmt.Sprintf("%dms", slice.EndMS),
			"-i", audioPath,
			"-c", "copy",
			out,
		)
		fmt.Fprintf(logFile, "---- clip %d [%d..%d ms] ----\n", n, slice.StartMS, slice.EndMS)
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		if err := cmd.Run(); err != nil {
			return 0, fmt.Errorf("splitter: ffmpeg clip %d: %w (see %s)", n, err, ffmpegLog)
		}

		if _, err := fmt.Fprintf(meta, "%d|%s\n", n, slice.Text); err != nil {
			return 0, fmt.Errorf("splitter: write metadata: %w", err)
		}
	}

	slog.Info("audio split complete", "clips", len(slices), "offset", offset)
	return offset + len(slices), nil
}

// VerifyCount compares the number of clip files next to audioPath with the
// expected total and logs a warning when clips are missing. Missing clips
// are not fatal; the metadata file still names what exists.
func (s *Splitter) VerifyCount(audioPath string, expected int) error {
	dir := filepath.Dir(audioPath)
	ext := filepath.Ext(audioPath)
	stem := strings.TrimSuffix(filepath.Base(audioPath), ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("splitter: read dir %q: %w", dir, err)
	}
	count := 0
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) == ext && strings.TrimSuffix(name, ext) != stem {
			count++
		}
	}
	if count >= expected {
		slog.Info("clip count verified", "found", count, "expected", expected)
	} else {
		slog.Warn("fewer clips than expected", "found", count, "expected", expected)
	}
	return nil
}

// metadataOffset returns the clip counter from the last line of an existing
// metadata file, or 0 when the file does not exist. A metadata file that
// exists but cannot yield a counter is an error: silently restarting from 1
// would overwrite earlier clips.
func metadataOffset(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("splitter: open metadata: %w", err)
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("splitter: read metadata: %w", err)
	}
	if last == "" {
		return 0, nil
	}
	counter, _, found := strings.Cut(last, "|")
	n, err := strconv.Atoi(counter)
	if !found || err != nil || n <= 0 {
		return 0, fmt.Errorf("splitter: cannot resume: bad counter on last line of %q: %q", path, last)
	}
	return n, nil
}
