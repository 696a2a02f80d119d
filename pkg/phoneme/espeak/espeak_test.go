package espeak_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/phonalign/phonalign/pkg/phoneme/espeak"
)

// stubBinary writes a shell script standing in for espeak-ng and returns its
// path. The script receives the text as its final argument.
func stubBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "espeak-ng")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nfor last; do :; done\n"+script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestConvert_FlattensClauseLines(t *testing.T) {
	t.Parallel()

	// espeak-ng emits one line per clause; Convert must rejoin them.
	bin := stubBinary(t, "echo \"həˈloʊ\"\necho \"wɝːld $last\"\n")
	c := espeak.New(espeak.WithBinary(bin))

	got, err := c.Convert(context.Background(), "x")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if want := "həˈloʊ wɝːld x"; got != want {
		t.Errorf("Convert = %q, want %q", got, want)
	}
}

func TestConvert_ProcessFailure(t *testing.T) {
	t.Parallel()

	bin := stubBinary(t, "echo 'no such voice' >&2\nexit 1\n")
	c := espeak.New(espeak.WithBinary(bin))

	_, err := c.Convert(context.Background(), "x")
	if err == nil {
		t.Fatal("Convert succeeded despite process failure")
	}
	if !strings.Contains(err.Error(), "no such voice") {
		t.Errorf("error %q does not carry the process stderr", err)
	}
}

func TestConvertBatch_PreservesOrder(t *testing.T) {
	t.Parallel()

	bin := stubBinary(t, "echo \"ipa-$last\"\n")
	c := espeak.New(espeak.WithBinary(bin), espeak.WithWorkers(4))

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("word%d", i)
	}

	results, err := c.ConvertBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("ConvertBatch: %v", err)
	}
	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	for i, r := range results {
		if want := fmt.Sprintf("ipa-word%d", i); r != want {
			t.Errorf("results[%d] = %q, want %q", i, r, want)
		}
	}
}

func TestConvertBatch_FirstFailureCancels(t *testing.T) {
	t.Parallel()

	bin := stubBinary(t, "case \"$last\" in bad) exit 1;; esac\necho \"$last\"\n")
	c := espeak.New(espeak.WithBinary(bin), espeak.WithWorkers(2))

	_, err := c.ConvertBatch(context.Background(), []string{"fine", "bad", "also fine"})
	if err == nil {
		t.Fatal("ConvertBatch succeeded despite a failing conversion")
	}
}
