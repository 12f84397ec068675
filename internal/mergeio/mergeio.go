// Package mergeio writes a completed training run's output: a GPT-2-style
// merges.txt listing each merge in emission order, a vocab.txt listing every
// token id's constituent byte sequence, and an optional raw binary dump of
// the final skip sequence's slots. Every write goes through
// github.com/natefinch/atomic so a crash mid-write never leaves a truncated
// or half-written file in place, the same guarantee the teacher pack relies
// on for its own on-disk state.
package mergeio

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/bpetrain/internal/skipseq"
	"github.com/bpetrain/internal/token"
)

// MergeRecord is one emitted merge, in the order Trainer produced it.
type MergeRecord struct {
	Pair token.Pair
	ID   token.TokenId
}

// WriteMerges writes records to path, one "first second" pair per line in
// emission order, matching the GPT-2 tokenizer's merges.txt convention. The
// assigned id is implicit in line position: line i (0-indexed) assigns id
// firstEmitID+i, so the file is only meaningful together with the
// firstEmitID it was produced under.
func WriteMerges(path string, records []MergeRecord) error {
	var buf bytes.Buffer
	for _, r := range records {
		fmt.Fprintf(&buf, "%d %d\n", r.Pair.First, r.Pair.Second)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("mergeio: writing %s: %w", path, err)
	}
	return nil
}

// VocabEntry is one vocabulary entry: a token id and the flattened sequence
// of initial-alphabet bytes it expands to.
type VocabEntry struct {
	ID    token.TokenId
	Bytes []byte
}

// BuildVocab reconstructs every emitted token's byte expansion from its
// merge history, given the initial alphabet size (256 for raw bytes). The
// initial alphabet's own entries (ids below firstEmitID) are single bytes.
func BuildVocab(firstEmitID token.TokenId, records []MergeRecord) []VocabEntry {
	expansions := make(map[token.TokenId][]byte, int(firstEmitID)+len(records))
	for b := 0; b < int(firstEmitID); b++ {
		expansions[token.TokenId(b)] = []byte{byte(b)}
	}

	out := make([]VocabEntry, 0, int(firstEmitID)+len(records))
	for b := 0; b < int(firstEmitID); b++ {
		out = append(out, VocabEntry{ID: token.TokenId(b), Bytes: expansions[token.TokenId(b)]})
	}

	for i, r := range records {
		id := firstEmitID + token.TokenId(i)
		expanded := make([]byte, 0, len(expansions[r.Pair.First])+len(expansions[r.Pair.Second]))
		expanded = append(expanded, expansions[r.Pair.First]...)
		expanded = append(expanded, expansions[r.Pair.Second]...)
		expansions[id] = expanded
		out = append(out, VocabEntry{ID: id, Bytes: expanded})
	}
	return out
}

// WriteVocab writes entries to path as "<id>\t<escaped bytes>" lines, one
// per entry in id order. Bytes outside printable ASCII are escaped as \xNN
// so the file stays single-line-per-entry and diffable.
func WriteVocab(path string, entries []VocabEntry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%d\t%s\n", e.ID, escapeBytes(e.Bytes))
	}
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("mergeio: writing %s: %w", path, err)
	}
	return nil
}

// escapeScratchPool reuses *bytes.Buffer values across escapeBytes calls so
// writing a large vocabulary doesn't allocate one buffer per entry, mirrored
// on the teacher's scratchPool/acquireScratch/releaseScratch trio.
var escapeScratchPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func acquireScratchBuf() *bytes.Buffer {
	buf := escapeScratchPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func releaseScratchBuf(buf *bytes.Buffer) {
	escapeScratchPool.Put(buf)
}

func escapeBytes(bs []byte) string {
	buf := acquireScratchBuf()
	defer releaseScratchBuf(buf)

	for _, b := range bs {
		if b >= 0x20 && b < 0x7f && b != '\\' && b != '\t' && b != '\n' {
			buf.WriteByte(b)
			continue
		}
		fmt.Fprintf(buf, "\\x%02x", b)
	}
	return buf.String()
}

// WriteSlotDump atomically writes seq's bit-exact slot layout (as produced
// by skipseq.SkipSeq.DumpSlots) to path, so a crash mid-dump never leaves a
// truncated file that a later resume could mistake for a complete one.
func WriteSlotDump(path string, seq *skipseq.SkipSeq) error {
	var buf bytes.Buffer
	if err := seq.DumpSlots(&buf); err != nil {
		return fmt.Errorf("mergeio: dumping slots: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("mergeio: writing %s: %w", path, err)
	}
	return nil
}
