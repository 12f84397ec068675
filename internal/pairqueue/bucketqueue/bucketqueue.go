// Package bucketqueue implements a bucket-queue alternative to pairheap's
// indexed binary heap, keyed by frequency instead of a comparison function.
// It is the spec's documented legal substitution (design notes, "priority
// queue alternatives") and is not the default queue Trainer wires up: bucket
// queues pay off when the value space is small and bounded, which is the
// shape of a merge-rank rather than a raw occurrence count. It is kept as a
// concrete, tested alternative behind the same interface.
package bucketqueue

import (
	"errors"

	"github.com/bpetrain/internal/token"
)

var (
	ErrAlreadyPresent = errors.New("bucketqueue: pair already present")
	ErrEmpty          = errors.New("bucketqueue: queue is empty")
	ErrNotPresent     = errors.New("bucketqueue: pair not present")
)

// BucketQueue is an array of buckets indexed by frequency, each holding the
// pairs currently at that frequency. It supports the same six operations as
// pairheap.PairHeap that trainer.PairQueue requires.
type BucketQueue struct {
	buckets [][]token.Pair
	index   map[token.Pair]int // pair -> bucket index (== frequency)
	top     int                // highest non-empty bucket, -1 if none
	count   int
}

// New returns an empty BucketQueue.
func New() *BucketQueue {
	return &BucketQueue{index: make(map[token.Pair]int), top: -1}
}

func (q *BucketQueue) growTo(n int) {
	if n < len(q.buckets) {
		return
	}
	grown := make([][]token.Pair, n+1)
	copy(grown, q.buckets)
	q.buckets = grown
}

// Get returns the current frequency for pair, or (0, false) if absent.
func (q *BucketQueue) Get(p token.Pair) (uint64, bool) {
	idx, ok := q.index[p]
	if !ok {
		return 0, false
	}
	return uint64(idx), true
}

// Insert adds pair at the given frequency. pair must be absent.
func (q *BucketQueue) Insert(p token.Pair, freq uint64) error {
	if _, exists := q.index[p]; exists {
		return ErrAlreadyPresent
	}
	idx := int(freq)
	q.growTo(idx)
	q.buckets[idx] = append(q.buckets[idx], p)
	q.index[p] = idx
	if idx > q.top {
		q.top = idx
	}
	q.count++
	return nil
}

// Update moves pair to a new frequency bucket. pair must be present.
func (q *BucketQueue) Update(p token.Pair, freq uint64) error {
	old, ok := q.index[p]
	if !ok {
		return ErrNotPresent
	}
	newIdx := int(freq)
	if newIdx == old {
		return nil
	}
	q.removeFromBucket(old, p)
	q.growTo(newIdx)
	q.buckets[newIdx] = append(q.buckets[newIdx], p)
	q.index[p] = newIdx
	if newIdx > q.top {
		q.top = newIdx
	}
	return nil
}

func (q *BucketQueue) removeFromBucket(idx int, p token.Pair) {
	b := q.buckets[idx]
	for i, cand := range b {
		if cand == p {
			b[i] = b[len(b)-1]
			q.buckets[idx] = b[:len(b)-1]
			return
		}
	}
}

// PopMax removes and returns the pair with the highest frequency, breaking
// ties within a bucket deterministically by (First desc, Second desc).
func (q *BucketQueue) PopMax() (token.Pair, uint64, error) {
	for q.top >= 0 && (q.top >= len(q.buckets) || len(q.buckets[q.top]) == 0) {
		q.top--
	}
	if q.top < 0 {
		return token.Pair{}, 0, ErrEmpty
	}

	b := q.buckets[q.top]
	best := 0
	for i := 1; i < len(b); i++ {
		if higher(b[i], b[best]) {
			best = i
		}
	}

	p := b[best]
	b[best] = b[len(b)-1]
	q.buckets[q.top] = b[:len(b)-1]
	delete(q.index, p)
	q.count--

	return p, uint64(q.top), nil
}

// IsEmpty reports whether the queue holds no entries.
func (q *BucketQueue) IsEmpty() bool { return q.count == 0 }

// Size returns the number of entries currently queued.
func (q *BucketQueue) Size() int { return q.count }

func higher(a, b token.Pair) bool {
	if a.First != b.First {
		return a.First > b.First
	}
	return a.Second > b.Second
}
