// Package corpus reads a training corpus from one or more files into an
// owned sequence of token ids, widening each raw byte to a TokenId in
// [0,256) the same way the teacher's tokenizer.EncodeOffline seeds its
// initial token array from raw input bytes.
package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bpetrain/internal/token"
)

// ErrNoInputPaths is returned by Load when paths is empty.
var ErrNoInputPaths = errors.New("corpus: no input paths given")

// Load reads every path in order (expanding shell globs, and treating "-"
// as stdin) and concatenates their bytes into one owned []token.TokenId.
// Each byte widens to the token id of the same numeric value, matching the
// initial 256-entry alphabet the spec assumes.
func Load(paths []string) ([]token.TokenId, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputPaths
	}

	var all []byte
	for _, p := range paths {
		data, err := readOne(p)
		if err != nil {
			return nil, err
		}
		all = append(all, data...)
	}

	out := make([]token.TokenId, len(all))
	for i, b := range all {
		out[i] = token.TokenId(b)
	}
	return out, nil
}

func readOne(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("corpus: reading stdin: %w", err)
		}
		return data, nil
	}

	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: expanding glob %q: %w", path, err)
	}
	if len(matches) == 0 {
		matches = []string{path}
	}

	var out []byte
	for _, m := range matches {
		data, err := readFileFast(m)
		if err != nil {
			return nil, fmt.Errorf("corpus: reading %q: %w", m, err)
		}
		out = append(out, data...)
	}
	return out, nil
}

// readFileFast memory-maps path read-only when possible, falling back to a
// plain read for files mmap can't handle (empty files, non-regular files),
// grounded on the teacher pack's mmap-based cache load
// (calvinalkan-agent-task/cache_binary.go LoadBinaryCache).
func readFileFast(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return io.ReadAll(f)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return io.ReadAll(f)
	}
	defer unix.Munmap(data)

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
