package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bpetrain/internal/cli"
)

func writeCorpus(t *testing.T, dir string, data string) string {
	t.Helper()
	path := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunTrainsAndWritesOutputFiles(t *testing.T) {
	dir := t.TempDir()
	corpusPath := writeCorpus(t, dir, "ababababab")
	mergesPath := filepath.Join(dir, "merges.txt")
	vocabPath := filepath.Join(dir, "vocab.txt")

	var stdout, stderr bytes.Buffer
	code := cli.Run(&stdout, &stderr, []string{
		"bpetrain",
		"--target-vocab=258",
		"--out-merges=" + mergesPath,
		"--out-vocab=" + vocabPath,
		"--input=" + corpusPath,
	}, nil)

	if code != 0 {
		t.Fatalf("expected exit 0, got %d, stderr=%q", code, stderr.String())
	}

	merges, err := os.ReadFile(mergesPath)
	if err != nil {
		t.Fatalf("reading merges.txt: %v", err)
	}
	if !strings.Contains(string(merges), "97 98") {
		t.Fatalf("expected merges.txt to contain the (a,b) merge, got %q", string(merges))
	}

	vocab, err := os.ReadFile(vocabPath)
	if err != nil {
		t.Fatalf("reading vocab.txt: %v", err)
	}
	if len(vocab) == 0 {
		t.Fatalf("expected non-empty vocab.txt")
	}
}

func TestRunFailsOnMissingInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := cli.Run(&stdout, &stderr, []string{"bpetrain"}, nil)
	if code != 1 {
		t.Fatalf("expected exit 1 for missing input path, got %d", code)
	}
	if !strings.Contains(stderr.String(), "no input paths") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestRunFailsOnInvalidSkipBits(t *testing.T) {
	dir := t.TempDir()
	corpusPath := writeCorpus(t, dir, "ab")

	var stdout, stderr bytes.Buffer
	code := cli.Run(&stdout, &stderr, []string{"bpetrain", "--skip-bits=99", "--input=" + corpusPath}, nil)
	if code != 1 {
		t.Fatalf("expected exit 1 for invalid skip-bits, got %d", code)
	}
	if !strings.Contains(stderr.String(), "skip_bits") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}
