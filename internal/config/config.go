// Package config parses bpetrain's CLI flags and an optional JSONC config
// file into a validated Options value, following the flag-plus-overlay
// pattern the teacher pack uses for its own CLI config loading.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/bpetrain/internal/token"
	"github.com/bpetrain/internal/trainer"
)

var (
	// ErrConfigFileNotFound is returned when an explicitly named config file
	// does not exist.
	ErrConfigFileNotFound = errors.New("config: file not found")
	// ErrInvalidJSONC is returned when a config file is not valid JSON with
	// Comments.
	ErrInvalidJSONC = errors.New("config: invalid JSONC")
	// ErrSkipBitsRange is returned when skip_bits falls outside [1,16].
	ErrSkipBitsRange = errors.New("config: skip_bits must be between 1 and 16")
	// ErrTargetVocabTooSmall is returned when target_vocab_size does not
	// exceed first_emit_id.
	ErrTargetVocabTooSmall = errors.New("config: target_vocab_size must exceed first_emit_id")
	// ErrNoInputPaths is returned when no input file was named.
	ErrNoInputPaths = errors.New("config: no input paths given")
)

// fileOverlay is the subset of Options that may come from a JSONC config
// file. Fields left unset (zero value) do not override flag defaults.
type fileOverlay struct {
	SkipBits        uint          `json:"skip_bits,omitempty"`
	TargetVocabSize int           `json:"target_vocab_size,omitempty"`
	FirstEmitID     token.TokenId `json:"first_emit_id,omitempty"`
	MergesPath      string        `json:"merges_path,omitempty"`
	VocabPath       string        `json:"vocab_path,omitempty"`
	ProgressEvery   int           `json:"progress_every,omitempty"`
}

// Options is the fully resolved configuration for one training run.
type Options struct {
	Inputs          []string
	SkipBits        uint
	TargetVocabSize int
	FirstEmitID     token.TokenId
	MergesPath      string
	VocabPath       string
	ProgressEvery   int
}

// TrainerOptions projects the fields trainer.Trainer needs out of Options.
func (o Options) TrainerOptions() trainer.Options {
	return trainer.Options{
		SkipBits:        o.SkipBits,
		TargetVocabSize: o.TargetVocabSize,
		FirstEmitID:     o.FirstEmitID,
	}
}

// defaults returns the built-in starting point before any config file or
// flag override is applied.
func defaults() Options {
	return Options{
		SkipBits:        8,
		TargetVocabSize: 512,
		FirstEmitID:     256,
		MergesPath:      "merges.txt",
		VocabPath:       "vocab.txt",
		ProgressEvery:   1000,
	}
}

// Parse parses args (typically os.Args[1:]) against fs, applying an optional
// --config JSONC file between the built-in defaults and explicit flags, and
// validates the result. Flag names and shape follow the external interface
// documented in SPEC_FULL.md §6: --input is repeatable rather than
// positional, so a caller following the documented CLI gets the same flags
// the code registers.
func Parse(fs *flag.FlagSet, args []string) (Options, error) {
	opts := defaults()

	var configPath string
	var inputs []string
	fs.StringVar(&configPath, "config", "", "path to a JSONC config file")
	fs.StringArrayVar(&inputs, "input", nil, "input file to train on, or - for stdin (repeatable)")
	fs.UintVar(&opts.SkipBits, "skip-bits", opts.SkipBits, "width in bits of the skip sequence's skip field (1-16)")
	fs.IntVar(&opts.TargetVocabSize, "target-vocab", opts.TargetVocabSize, "vocabulary size at which training stops")
	var firstEmit uint32
	fs.Uint32Var(&firstEmit, "first-emit-id", uint32(opts.FirstEmitID), "first token id issued for a merge")
	fs.StringVar(&opts.MergesPath, "out-merges", opts.MergesPath, "path to write the merge list")
	fs.StringVar(&opts.VocabPath, "out-vocab", opts.VocabPath, "path to write the final vocabulary")
	fs.IntVar(&opts.ProgressEvery, "progress-interval", opts.ProgressEvery, "merges between progress reports (0 disables)")

	// A first pass just to discover --config before the real parse applies
	// its overlay; pflag tolerates parsing the same set twice.
	probe := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	probe.ParseErrorsWhitelist.UnknownFlags = true
	probe.StringVar(&configPath, "config", "", "")
	_ = probe.Parse(args)

	if configPath != "" {
		overlay, err := loadFile(configPath)
		if err != nil {
			return Options{}, err
		}
		applyOverlay(&opts, overlay)
		firstEmit = uint32(opts.FirstEmitID)
	}

	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("config: parsing flags: %w", err)
	}
	opts.FirstEmitID = token.TokenId(firstEmit)
	opts.Inputs = inputs

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func applyOverlay(opts *Options, overlay fileOverlay) {
	if overlay.SkipBits != 0 {
		opts.SkipBits = overlay.SkipBits
	}
	if overlay.TargetVocabSize != 0 {
		opts.TargetVocabSize = overlay.TargetVocabSize
	}
	if overlay.FirstEmitID != 0 {
		opts.FirstEmitID = overlay.FirstEmitID
	}
	if overlay.MergesPath != "" {
		opts.MergesPath = overlay.MergesPath
	}
	if overlay.VocabPath != "" {
		opts.VocabPath = overlay.VocabPath
	}
	if overlay.ProgressEvery != 0 {
		opts.ProgressEvery = overlay.ProgressEvery
	}
}

func loadFile(path string) (fileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileOverlay{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return fileOverlay{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileOverlay{}, fmt.Errorf("%w: %s: %w", ErrInvalidJSONC, path, err)
	}

	var overlay fileOverlay
	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return fileOverlay{}, fmt.Errorf("%w: %s: %w", ErrInvalidJSONC, path, err)
	}
	return overlay, nil
}

// Validate checks the invariants the trainer and its dependents rely on:
// skip_bits in range, target_vocab_size strictly greater than first_emit_id,
// and at least one input path.
func (o Options) Validate() error {
	if o.SkipBits < 1 || o.SkipBits > 16 {
		return fmt.Errorf("%w: got %d", ErrSkipBitsRange, o.SkipBits)
	}
	if o.TargetVocabSize <= int(o.FirstEmitID) {
		return fmt.Errorf("%w: target=%d first_emit=%d", ErrTargetVocabTooSmall, o.TargetVocabSize, o.FirstEmitID)
	}
	if len(o.Inputs) == 0 {
		return ErrNoInputPaths
	}
	return nil
}
