// Package skipseq implements the bit-packed skipping sequence: a fixed-length
// array of token ids that supports logical deletion in O(1) amortized time
// without shifting memory, by encoding a forward jump distance in the high
// bits of each slot.
//
// A slot's low value_bits carry a token id; its high skip_bits carry a skip
// distance. Distance 0 means the slot is live. Distance s > 0 means the slot
// is dead and the next live slot is at least s positions further along.
package skipseq

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/bpetrain/internal/token"
)

// slotWidth is the fixed bit width of a slot, matching the reference 32-bit
// TokenId. skip_bits is a construction-time parameter; value_bits is derived.
const slotWidth = 32

var (
	// ErrValueTooWide is returned by New when an input token id does not fit
	// in the value field derived from (slotWidth, skipBits).
	ErrValueTooWide = errors.New("skipseq: token id exceeds value range for configured skip bits")

	// ErrInvalidSkipBits is returned by New when skipBits is outside 1..16.
	ErrInvalidSkipBits = errors.New("skipseq: skip_bits must be between 1 and 16")

	// ErrOutOfMemory mirrors the spec's allocation-failure error kind. Go's
	// runtime does not return a recoverable error on a failed make/append;
	// this sentinel exists for API completeness and fires only when the
	// requested length cannot be represented, the one allocation failure
	// this package can actually detect ahead of calling make.
	ErrOutOfMemory = errors.New("skipseq: allocation too large")
)

// SkipSeq is a bit-packed sequence of token ids with in-place logical delete
// and forward iteration. Its storage length is fixed at construction; only
// the live count decreases.
type SkipSeq struct {
	slots     []uint32
	skipBits  uint
	valueMask uint32
	skipShift uint
	maxSkip   uint32
	liveCount int
}

// New allocates a SkipSeq over values, one slot per value, all initially
// live. skipBits must be in 1..16 per the spec's configuration range.
func New(values []token.TokenId, skipBits uint) (*SkipSeq, error) {
	if skipBits < 1 || skipBits > 16 {
		return nil, ErrInvalidSkipBits
	}
	if len(values) > math.MaxInt32 {
		return nil, ErrOutOfMemory
	}

	valueBits := slotWidth - skipBits
	valueMask := uint32(1)<<valueBits - 1
	maxSkip := uint32(1)<<skipBits - 1

	slots := make([]uint32, len(values))
	for i, v := range values {
		if uint32(v) > valueMask {
			return nil, fmt.Errorf("%w: value %d at index %d", ErrValueTooWide, v, i)
		}
		slots[i] = uint32(v)
	}

	return &SkipSeq{
		slots:     slots,
		skipBits:  skipBits,
		valueMask: valueMask,
		skipShift: valueBits,
		maxSkip:   maxSkip,
		liveCount: len(values),
	}, nil
}

// Len returns the fixed storage length.
func (s *SkipSeq) Len() int { return len(s.slots) }

// LiveCount returns the number of slots whose skip field is 0.
func (s *SkipSeq) LiveCount() int { return s.liveCount }

func (s *SkipSeq) value(i int) token.TokenId { return token.TokenId(s.slots[i] & s.valueMask) }
func (s *SkipSeq) skip(i int) uint32          { return s.slots[i] >> s.skipShift }

func (s *SkipSeq) setValue(i int, v token.TokenId) {
	s.slots[i] = (s.slots[i] &^ s.valueMask) | (uint32(v) & s.valueMask)
}

func (s *SkipSeq) setSkip(i int, skip uint32) {
	s.slots[i] = (s.slots[i] & s.valueMask) | (skip << s.skipShift)
}

// nextLive returns the index of the first live slot at or after from, or
// -1 if none exists. This is the advance algorithm from the spec: it
// compounds skip fields on the fly rather than trusting them as exact
// pointers.
func (s *SkipSeq) nextLive(from int) int {
	j := from
	for j < len(s.slots) {
		if sk := s.skip(j); sk == 0 {
			return j
		} else {
			j += int(sk)
		}
	}
	return -1
}

// Cursor walks live slots of a SkipSeq in order. Before the first Advance it
// is in the initial state, in which ReplaceAndSkipNext is forbidden. After
// the first Advance it is anchored at that position.
type Cursor struct {
	seq      *SkipSeq
	pos      int
	anchored bool
}

// NewCursor returns a fresh cursor in the initial state.
func (s *SkipSeq) NewCursor() *Cursor {
	return &Cursor{seq: s, pos: -1, anchored: false}
}

// Advance returns the value at the next live position and moves the cursor
// there, or returns (0, false) at the end of the sequence.
func (c *Cursor) Advance() (token.TokenId, bool) {
	j := c.seq.nextLive(c.pos + 1)
	if j < 0 {
		return 0, false
	}
	c.pos = j
	c.anchored = true
	return c.seq.value(j), true
}

// Peek returns the value at the next live position after the cursor without
// moving it, or (0, false) at the end of the sequence.
func (c *Cursor) Peek() (token.TokenId, bool) {
	j := c.seq.nextLive(c.pos + 1)
	if j < 0 {
		return 0, false
	}
	return c.seq.value(j), true
}

// Peek2 returns the value at the live position two steps past the cursor, or
// (0, false) if either step runs off the end.
func (c *Cursor) Peek2() (token.TokenId, bool) {
	j := c.seq.nextLive(c.pos + 1)
	if j < 0 {
		return 0, false
	}
	k := c.seq.nextLive(j + 1)
	if k < 0 {
		return 0, false
	}
	return c.seq.value(k), true
}

// ReplaceAndSkipNext overwrites the value at the cursor with v, marks the
// next live slot dead, and decrements the live count by one. The cursor
// must be anchored at a live slot; calling it from the initial state is a
// programming bug and panics.
//
// Deletion always writes a skip distance of 1, trading the option to
// propagate longer jumps (permitted by the spec) for a simpler, always-
// correct lower bound; iteration pays linear scan cost across dead runs.
func (c *Cursor) ReplaceAndSkipNext(v token.TokenId) {
	if !c.anchored {
		panic("skipseq: ReplaceAndSkipNext called on an unanchored cursor")
	}
	if uint32(v) > c.seq.valueMask {
		panic(fmt.Sprintf("skipseq: replacement value %d exceeds value range", v))
	}

	c.seq.setValue(c.pos, v)

	n := c.seq.nextLive(c.pos + 1)
	if n < 0 {
		return
	}
	c.seq.setSkip(n, 1)
	c.seq.liveCount--
}

// CollectLive walks a fresh cursor over the sequence and returns every live
// value in order. It is the "final live walk" referenced throughout the
// spec, used both by callers reading out a trained sequence and by tests
// checking invariants.
func (s *SkipSeq) CollectLive() []token.TokenId {
	out := make([]token.TokenId, 0, s.liveCount)
	c := s.NewCursor()
	for {
		v, ok := c.Advance()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// DumpSlots writes the bit-exact little-endian slot layout described in the
// spec's external interfaces section: value in the low value_bits, skip in
// the high skip_bits, one uint32 per slot including dead ones.
func (s *SkipSeq) DumpSlots(w io.Writer) error {
	buf := make([]byte, 4)
	for _, slot := range s.slots {
		binary.LittleEndian.PutUint32(buf, slot)
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("skipseq: writing slot dump: %w", err)
		}
	}
	return nil
}
