// Package trainer orchestrates BPE training: seeding the pair queue from an
// initial scan of a skip sequence, then repeatedly popping the most frequent
// pair, rewriting its occurrences, and maintaining pair frequencies
// incrementally around each merge site rather than rescanning.
package trainer

import (
	"context"
	"fmt"

	"github.com/bpetrain/internal/pairheap"
	"github.com/bpetrain/internal/skipseq"
	"github.com/bpetrain/internal/token"
)

// PairQueue is the interface Trainer drives the merge loop through. Both
// pairheap.PairHeap and pairqueue/bucketqueue.BucketQueue satisfy it; the
// default wiring in New uses pairheap.
type PairQueue interface {
	Get(p token.Pair) (uint64, bool)
	Insert(p token.Pair, freq uint64) error
	Update(p token.Pair, freq uint64) error
	PopMax() (token.Pair, uint64, error)
	IsEmpty() bool
	Size() int
}

// MergeSink receives a (pair -> new id) record for every merge Trainer
// applies, in emission order.
type MergeSink interface {
	Merge(pair token.Pair, id token.TokenId)
}

// MergeSinkFunc adapts a function to MergeSink.
type MergeSinkFunc func(pair token.Pair, id token.TokenId)

// Merge implements MergeSink.
func (f MergeSinkFunc) Merge(pair token.Pair, id token.TokenId) { f(pair, id) }

// Options configures a training run.
type Options struct {
	// SkipBits is the width of SkipSeq's skip field, 1..16.
	SkipBits uint
	// TargetVocabSize is the total vocabulary size, including the initial
	// alphabet, at which training stops.
	TargetVocabSize int
	// FirstEmitID is the first token id issued for a merge; it must exceed
	// every initial token id.
	FirstEmitID token.TokenId
}

// Stats summarizes a completed training run.
type Stats struct {
	// MergesEmitted is the number of (pair -> id) records reported.
	MergesEmitted int
	// FinalVocabSize is the vocabulary size at the point training stopped.
	FinalVocabSize int
	// StepsWithZeroOccurrences counts steps where the popped pair had no
	// remaining occurrences in the sequence (all consumed by an earlier,
	// overlapping merge in the same pass). The step still advances the
	// emitted token id; see Open Question 1 in DESIGN.md.
	StepsWithZeroOccurrences int
}

// Trainer owns a SkipSeq and a PairQueue for the duration of one training
// session and is the only thing that mutates them. Sequence exposes the
// SkipSeq for reading, and a queue passed to NewWithQueue stays reachable
// through the caller's own reference.
type Trainer struct {
	seq    *skipseq.SkipSeq
	queue  PairQueue
	nextID token.TokenId
	target int
	seeded bool
}

// New builds a Trainer over values, copying them into a freshly constructed
// SkipSeq (the input may be freed after New returns) and seeding an empty
// indexed PairHeap as the default queue.
func New(values []token.TokenId, opts Options) (*Trainer, error) {
	return NewWithQueue(values, opts, pairheap.New())
}

// NewWithQueue is New but with an explicit PairQueue implementation, for
// substituting the bucket-queue alternative or a test double.
func NewWithQueue(values []token.TokenId, opts Options, queue PairQueue) (*Trainer, error) {
	seq, err := skipseq.New(values, opts.SkipBits)
	if err != nil {
		return nil, fmt.Errorf("trainer: building skip sequence: %w", err)
	}
	return &Trainer{
		seq:    seq,
		queue:  queue,
		nextID: opts.FirstEmitID,
		target: opts.TargetVocabSize,
	}, nil
}

// Sequence exposes the underlying SkipSeq for read-only inspection (e.g. a
// final live walk, or a debug dump) after training completes.
func (tr *Trainer) Sequence() *skipseq.SkipSeq { return tr.seq }

// StepResult reports what a single call to Step did. Applied is false when
// the main loop's termination condition was already met; every other field
// is meaningless in that case.
type StepResult struct {
	Applied     bool
	Pair        token.Pair
	NewID       token.TokenId
	Occurrences int
}

// Step runs at most one iteration of the main merge loop: pop the most
// frequent pair, rewrite its occurrences, apply the local frequency deltas,
// and advance the emitted token id. It lazily runs the seed scan on its
// first call. Callers that only want the end result should use Train;
// Step exists so tests (and an interactive caller) can observe training one
// merge at a time.
func (tr *Trainer) Step(ctx context.Context) (StepResult, error) {
	if !tr.seeded {
		if err := tr.seed(); err != nil {
			return StepResult{}, err
		}
		tr.seeded = true
	}

	if !(int(tr.nextID) < tr.target && tr.seq.LiveCount() >= 2 && !tr.queue.IsEmpty()) {
		return StepResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}

	pair, freq, err := tr.queue.PopMax()
	if err != nil {
		return StepResult{}, nil
	}
	if freq == 0 {
		return StepResult{}, nil
	}

	id := tr.nextID
	occurrences := tr.applyMerge(pair, id)
	tr.nextID++

	return StepResult{Applied: true, Pair: pair, NewID: id, Occurrences: occurrences}, nil
}

// Train repeatedly calls Step until the main loop terminates, reporting
// every applied merge to sink (which may be nil) in emission order. ctx is
// checked once per iteration inside Step, never mid-step, matching the
// spec's "interrupted only at granularity between steps."
func (tr *Trainer) Train(ctx context.Context, sink MergeSink) (Stats, error) {
	var stats Stats
	for {
		res, err := tr.Step(ctx)
		if err != nil {
			stats.FinalVocabSize = int(tr.nextID)
			return stats, err
		}
		if !res.Applied {
			break
		}
		if res.Occurrences == 0 {
			stats.StepsWithZeroOccurrences++
		}
		if sink != nil {
			sink.Merge(res.Pair, res.NewID)
		}
		stats.MergesEmitted++
	}

	stats.FinalVocabSize = int(tr.nextID)
	return stats, nil
}

// seed performs the one linear pass that populates the pair queue with
// initial adjacent-pair counts. The left member of each counted pair is
// always the previous value returned by Advance; the right member is Peek.
func (tr *Trainer) seed() error {
	counts := make(map[token.Pair]uint64)

	cur := tr.seq.NewCursor()
	prev, ok := cur.Advance()
	if !ok {
		return nil
	}
	for {
		next, ok := cur.Peek()
		if !ok {
			break
		}
		counts[token.Pair{First: prev, Second: next}]++

		prev, ok = cur.Advance()
		if !ok {
			break
		}
	}

	for p, count := range counts {
		if err := tr.queue.Insert(p, count); err != nil {
			return fmt.Errorf("trainer: seeding pair queue: %w", err)
		}
	}
	return nil
}

// applyMerge walks a fresh cursor over the sequence, rewriting every
// left-to-right, non-overlapping occurrence of target to newID and applying
// the four local frequency deltas at each merge site. It returns the number
// of occurrences rewritten.
func (tr *Trainer) applyMerge(target token.Pair, newID token.TokenId) int {
	cur := tr.seq.NewCursor()

	current, ok := cur.Advance()
	if !ok {
		return 0
	}

	occurrences := 0
	var prev token.TokenId
	havePrev := false

	for {
		next, ok := cur.Peek()
		if !ok {
			break
		}

		if current == target.First && next == target.Second {
			var left token.TokenId
			leftOk := havePrev
			if leftOk {
				left = prev
			}
			rightRight, rrOk := cur.Peek2()

			cur.ReplaceAndSkipNext(newID)
			occurrences++

			if leftOk {
				tr.decrement(token.Pair{First: left, Second: target.First})
				tr.increment(token.Pair{First: left, Second: newID})
			}
			if rrOk {
				tr.decrement(token.Pair{First: target.Second, Second: rightRight})
				tr.increment(token.Pair{First: newID, Second: rightRight})
			}

			prev, havePrev = newID, true

			current, ok = cur.Advance()
			if !ok {
				break
			}
			continue
		}

		prev, havePrev = current, true
		current, ok = cur.Advance()
		if !ok {
			break
		}
	}

	return occurrences
}

// decrement drops an existing pair's frequency by one, floored at zero. A
// decrement on a pair the queue does not hold is a no-op.
func (tr *Trainer) decrement(p token.Pair) {
	freq, ok := tr.queue.Get(p)
	if !ok {
		return
	}
	newFreq := uint64(0)
	if freq > 0 {
		newFreq = freq - 1
	}
	_ = tr.queue.Update(p, newFreq)
}

// increment raises an existing pair's frequency by one, or inserts it at
// frequency one if the queue does not hold it yet.
func (tr *Trainer) increment(p token.Pair) {
	freq, ok := tr.queue.Get(p)
	if !ok {
		_ = tr.queue.Insert(p, 1)
		return
	}
	_ = tr.queue.Update(p, freq+1)
}
