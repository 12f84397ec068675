package skipseq

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bpetrain/internal/token"
)

func ids(vs ...uint32) []token.TokenId {
	out := make([]token.TokenId, len(vs))
	for i, v := range vs {
		out[i] = token.TokenId(v)
	}
	return out
}

func TestBasicSkip(t *testing.T) {
	seq, err := New(ids(10, 20, 30, 40, 50), 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c := seq.NewCursor()
	var got []token.TokenId
	for i := 0; i < 3; i++ {
		v, ok := c.Advance()
		if !ok {
			t.Fatalf("advance %d: unexpected end", i)
		}
		got = append(got, v)
	}
	want := ids(10, 20, 30)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("advance sequence mismatch: got %v want %v", got, want)
		}
	}

	c.ReplaceAndSkipNext(99)

	v, ok := c.Advance()
	if !ok || v != 50 {
		t.Fatalf("advance after replace: got (%d,%v), want (50,true)", v, ok)
	}
	if _, ok := c.Advance(); ok {
		t.Fatalf("advance past end: expected false")
	}

	live := seq.CollectLive()
	wantLive := ids(10, 20, 99, 50)
	if len(live) != len(wantLive) {
		t.Fatalf("live walk length: got %d want %d", len(live), len(wantLive))
	}
	for i := range wantLive {
		if live[i] != wantLive[i] {
			t.Fatalf("live walk mismatch at %d: got %v want %v", i, live, wantLive)
		}
	}
	if seq.LiveCount() != 4 {
		t.Fatalf("live count: got %d want 4", seq.LiveCount())
	}
}

// TestOverlappingMerges drives the cursor the way Trainer.applyMerge would,
// rewriting every left-to-right occurrence of (10,20) to 50 in one pass, and
// checks the final live walk against the spec's scenario 2.
func TestOverlappingMerges(t *testing.T) {
	seq, err := New(ids(10, 20, 10, 20, 50, 60, 70, 10, 20, 0, 0), 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	target := token.Pair{First: 10, Second: 20}
	c := seq.NewCursor()

	current, ok := c.Advance()
	if !ok {
		t.Fatalf("empty sequence")
	}
	for {
		next, ok := c.Peek()
		if !ok {
			break
		}
		if current == target.First && next == target.Second {
			c.ReplaceAndSkipNext(50)
			current, ok = c.Advance()
			if !ok {
				break
			}
			continue
		}
		current, ok = c.Advance()
		if !ok {
			break
		}
	}

	live := seq.CollectLive()
	want := ids(50, 50, 50, 60, 70, 50, 0, 0)
	if len(live) != len(want) {
		t.Fatalf("live walk length: got %v want %v", live, want)
	}
	for i := range want {
		if live[i] != want[i] {
			t.Fatalf("live walk mismatch at %d: got %v want %v", i, live, want)
		}
	}
}

// TestSkipBitSaturation exercises scenario 5: with skip_bits=2 (max skip
// distance 3), repeatedly replacing the 8th live element with the 9th's
// value and skipping the 9th never needs a skip distance greater than 1, so
// it never saturates.
func TestSkipBitSaturation(t *testing.T) {
	values := make([]uint32, 31)
	for i := range values {
		values[i] = uint32(i + 1)
	}
	seq, err := New(ids(values...), 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for round := 0; round < 16; round++ {
		c := seq.NewCursor()
		for i := 0; i < 8; i++ {
			if _, ok := c.Advance(); !ok {
				t.Fatalf("round %d: sequence exhausted before 8th live element", round)
			}
		}
		next, ok := c.Peek()
		if !ok {
			t.Fatalf("round %d: no 9th live element", round)
		}
		c.ReplaceAndSkipNext(next)
	}

	live := seq.CollectLive()
	want := ids(1, 2, 3, 4, 5, 6, 7, 24, 25, 26, 27, 28, 29, 30, 31)
	if len(live) != len(want) {
		t.Fatalf("live walk length: got %v want %v", live, want)
	}
	for i := range want {
		if live[i] != want[i] {
			t.Fatalf("live walk mismatch at %d: got %v want %v", i, live, want)
		}
	}
}

func TestLiveCountMatchesZeroSkipSlots(t *testing.T) {
	seq, err := New(ids(1, 2, 3, 4, 5), 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := seq.NewCursor()
	c.Advance()
	c.ReplaceAndSkipNext(1)

	zeroSkip := 0
	for i := range seq.slots {
		if seq.skip(i) == 0 {
			zeroSkip++
		}
	}
	if zeroSkip != seq.LiveCount() {
		t.Fatalf("live count %d does not match zero-skip slot count %d", seq.LiveCount(), zeroSkip)
	}
}

func TestValueTooWide(t *testing.T) {
	_, err := New(ids(1<<24), 8)
	if err == nil {
		t.Fatalf("expected ErrValueTooWide")
	}
}

func TestInvalidSkipBits(t *testing.T) {
	if _, err := New(ids(1), 0); err == nil {
		t.Fatalf("expected ErrInvalidSkipBits for skip_bits=0")
	}
	if _, err := New(ids(1), 17); err == nil {
		t.Fatalf("expected ErrInvalidSkipBits for skip_bits=17")
	}
}

func TestReplaceOnUnanchoredCursorPanics(t *testing.T) {
	seq, err := New(ids(1, 2, 3), 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unanchored replace")
		}
	}()
	seq.NewCursor().ReplaceAndSkipNext(9)
}

func TestDumpSlotsRoundTrip(t *testing.T) {
	seq, err := New(ids(1, 2, 3), 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var buf bytes.Buffer
	if err := seq.DumpSlots(&buf); err != nil {
		t.Fatalf("DumpSlots: %v", err)
	}
	if buf.Len() != 4*3 {
		t.Fatalf("dump length: got %d want %d", buf.Len(), 12)
	}
	for i, want := range []uint32{1, 2, 3} {
		if got := binary.LittleEndian.Uint32(buf.Bytes()[4*i:]); got != want {
			t.Fatalf("slot %d: got %d want %d", i, got, want)
		}
	}
}
