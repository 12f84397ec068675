// Package cli wires bpetrain's flag parsing, corpus loading, training, and
// output writing into the single command the cmd/bpetrain binary runs.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/bpetrain/internal/config"
	"github.com/bpetrain/internal/corpus"
	"github.com/bpetrain/internal/mergeio"
	"github.com/bpetrain/internal/progress"
	"github.com/bpetrain/internal/token"
	"github.com/bpetrain/internal/trainer"
)

// Run is bpetrain's entry point. sigCh, if non-nil, cancels the training
// context on the first received signal, so a long run can be stopped
// cleanly between merge steps rather than killed mid-write.
func Run(out, errOut io.Writer, args []string, sigCh <-chan os.Signal) int {
	fs := flag.NewFlagSet("bpetrain", flag.ContinueOnError)
	fs.SetOutput(errOut)

	opts, err := config.Parse(fs, args[1:])
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		fs.PrintDefaults()
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if sigCh != nil {
		go func() {
			if _, ok := <-sigCh; ok {
				cancel()
			}
		}()
	}

	if err := runTraining(ctx, out, opts); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

func runTraining(ctx context.Context, out io.Writer, opts config.Options) error {
	values, err := corpus.Load(opts.Inputs)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	tr, err := trainer.New(values, opts.TrainerOptions())
	if err != nil {
		return fmt.Errorf("initializing trainer: %w", err)
	}

	logger := log.New(out, "", log.LstdFlags)
	reporter := progress.New(logger, opts.ProgressEvery)

	var records []mergeio.MergeRecord
	mergeCount := 0
	sink := trainer.MergeSinkFunc(func(pair token.Pair, id token.TokenId) {
		records = append(records, mergeio.MergeRecord{Pair: pair, ID: id})
		mergeCount++
		reporter.Report(mergeCount, pair, id, tr.Sequence().LiveCount())
	})

	stats, err := tr.Train(ctx, sink)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}
	reporter.Final(stats.MergesEmitted, stats.FinalVocabSize)

	if err := mergeio.WriteMerges(opts.MergesPath, records); err != nil {
		return fmt.Errorf("writing merges: %w", err)
	}

	vocab := mergeio.BuildVocab(opts.FirstEmitID, records)
	if err := mergeio.WriteVocab(opts.VocabPath, vocab); err != nil {
		return fmt.Errorf("writing vocab: %w", err)
	}

	return nil
}
