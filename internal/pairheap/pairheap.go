// Package pairheap implements an indexed max-priority queue keyed by token
// pairs and valued by frequency. It supports O(log n) insert, update, and
// pop-max, and O(1) membership lookup, by maintaining a hash index from pair
// to the entry's current array position alongside the usual heap array.
package pairheap

import (
	"errors"

	"github.com/bpetrain/internal/token"
)

var (
	// ErrAlreadyPresent is returned by Insert when the pair already has an
	// entry in the heap.
	ErrAlreadyPresent = errors.New("pairheap: pair already present")

	// ErrEmpty is returned by PopMax when the heap holds no entries.
	ErrEmpty = errors.New("pairheap: heap is empty")

	// ErrNotPresent is returned by Update when the pair has no entry. The
	// spec names this as a precondition violation rather than a distinct
	// error kind; Trainer never triggers it because it only calls Update
	// after confirming presence via Get.
	ErrNotPresent = errors.New("pairheap: pair not present")
)

// Entry is a single record in the heap: a pair and its current frequency.
type Entry struct {
	Pair token.Pair
	Freq uint64
}

// PairHeap is a dense array of entries kept in max-heap order by Freq, with
// a parallel map from pair to array index kept consistent across swaps.
type PairHeap struct {
	entries []Entry
	index   map[token.Pair]int
}

// New returns an empty PairHeap.
func New() *PairHeap {
	return &PairHeap{index: make(map[token.Pair]int)}
}

// Size returns the number of entries, including zero-frequency tombstones.
func (h *PairHeap) Size() int { return len(h.entries) }

// IsEmpty reports whether the heap holds no entries at all.
func (h *PairHeap) IsEmpty() bool { return len(h.entries) == 0 }

// Get returns the current frequency for pair, or (0, false) if absent.
func (h *PairHeap) Get(p token.Pair) (uint64, bool) {
	idx, ok := h.index[p]
	if !ok {
		return 0, false
	}
	return h.entries[idx].Freq, true
}

// Insert adds pair with the given frequency. pair must be absent.
func (h *PairHeap) Insert(p token.Pair, freq uint64) error {
	if _, exists := h.index[p]; exists {
		return ErrAlreadyPresent
	}
	idx := len(h.entries)
	h.entries = append(h.entries, Entry{Pair: p, Freq: freq})
	h.index[p] = idx
	h.siftUp(idx)
	return nil
}

// Update overwrites the frequency of an already-present pair and restores
// heap order. A frequency of 0 leaves the entry in the heap as a tombstone.
func (h *PairHeap) Update(p token.Pair, newFreq uint64) error {
	idx, ok := h.index[p]
	if !ok {
		return ErrNotPresent
	}
	old := h.entries[idx].Freq
	h.entries[idx].Freq = newFreq
	switch {
	case newFreq > old:
		h.siftUp(idx)
	case newFreq < old:
		h.siftDown(idx)
	}
	return nil
}

// PopMax removes and returns the entry with the highest frequency, breaking
// ties deterministically by (First desc, Second desc). Fails with ErrEmpty
// if the heap holds no entries. A tombstoned (frequency 0) entry is only
// ever returned when no positive-frequency entry remains, a consequence of
// the heap property rather than special-cased logic.
func (h *PairHeap) PopMax() (token.Pair, uint64, error) {
	if len(h.entries) == 0 {
		return token.Pair{}, 0, ErrEmpty
	}

	top := h.entries[0]
	last := len(h.entries) - 1
	delete(h.index, top.Pair)

	if last == 0 {
		h.entries = h.entries[:0]
		return top.Pair, top.Freq, nil
	}

	h.entries[0] = h.entries[last]
	h.index[h.entries[0].Pair] = 0
	h.entries = h.entries[:last]
	h.siftDown(0)

	return top.Pair, top.Freq, nil
}

// Entries returns a copy of every entry currently in the heap, including
// tombstones, in no particular order. It exists for tests and diagnostics
// that need to inspect the full contents rather than pop through them.
func (h *PairHeap) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Peek returns the current maximum without removing it.
func (h *PairHeap) Peek() (token.Pair, uint64, bool) {
	if len(h.entries) == 0 {
		return token.Pair{}, 0, false
	}
	return h.entries[0].Pair, h.entries[0].Freq, true
}

// higher reports whether a should sit above b in the max-heap: by frequency
// first, then deterministically by (First desc, Second desc).
func higher(a, b Entry) bool {
	if a.Freq != b.Freq {
		return a.Freq > b.Freq
	}
	if a.Pair.First != b.Pair.First {
		return a.Pair.First > b.Pair.First
	}
	return a.Pair.Second > b.Pair.Second
}

func (h *PairHeap) swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.index[h.entries[i].Pair] = i
	h.index[h.entries[j].Pair] = j
}

// siftUp restores heap order upward from i and returns the entry's final
// index.
func (h *PairHeap) siftUp(i int) int {
	for i > 0 {
		parent := (i - 1) / 2
		if !higher(h.entries[i], h.entries[parent]) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
	return i
}

// siftDown restores heap order downward from i and returns the entry's
// final index.
func (h *PairHeap) siftDown(i int) int {
	n := len(h.entries)
	for {
		left := 2*i + 1
		right := 2*i + 2
		largest := i

		if left < n && higher(h.entries[left], h.entries[largest]) {
			largest = left
		}
		if right < n && higher(h.entries[right], h.entries[largest]) {
			largest = right
		}
		if largest == i {
			return i
		}
		h.swap(i, largest)
		i = largest
	}
}
