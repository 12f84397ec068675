// Package token defines the value types shared by the skip sequence, the
// pair heap, and the trainer: a token id and an ordered pair of token ids.
package token

// TokenId identifies a byte or a merged token in a vocabulary under
// construction. The reference width is 32 bits; a construction-time skip
// field (see package skipseq) carves the high bits off when a value is
// stored in a slot.
type TokenId uint32

// Pair is an ordered pair of adjacent token ids. Pair equality is
// componentwise, which makes it usable as a map key directly.
type Pair struct {
	First  TokenId
	Second TokenId
}
