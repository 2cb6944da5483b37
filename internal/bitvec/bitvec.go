// Package bitvec implements byte-packed bit vectors that live inside a
// memory-mapped arena, one bit per block or block-pair.
//
// This mirrors the Test/Set/Clear naming of a conventional Go bitset (see
// the stripped-down github.com/bits-and-blooms/bitset fork vendored by
// gaissmai/bart's internal/bitset), but a BitVec does not own a []uint64 of
// its own: its storage is a window into the arena's region.Region, at a
// byte offset fixed once at allocator-init time and recomputed the same
// way on every reopen. It also adds Flip, needed for the pair_state XOR
// discipline in internal/buddy, which a general-purpose bitset has no
// reason to expose.
package bitvec

import (
	"github.com/dkvlabs/hived/internal/offset"
	"github.com/dkvlabs/hived/internal/region"
)

// BitVec is a bit vector backed by bytes at [base, base+ByteLen) in a
// region.Region.
type BitVec struct {
	r    region.Region
	base offset.Offset
}

// ByteLen returns the number of bytes needed to hold n bits.
func ByteLen(nbits int) int {
	return (nbits + 7) / 8
}

// New wraps the bytes at [base, base+ByteLen(nbits)) as a bit vector. The
// caller is responsible for zeroing that range on first use; New does not
// touch the underlying bytes, so that reopening an existing arena simply
// trusts what is already there.
func New(r region.Region, base offset.Offset) BitVec {
	return BitVec{r: r, base: base}
}

func (b BitVec) byteAt(i uint) offset.Offset {
	return b.base.Add(int(i / 8))
}

// Test reports whether bit i is set.
func (b BitVec) Test(i uint) bool {
	mask := byte(1) << (i % 8)
	return b.r.Byte(b.byteAt(i))&mask != 0
}

// Set sets bit i to 1.
func (b BitVec) Set(i uint) {
	o := b.byteAt(i)
	b.r.PutByte(o, b.r.Byte(o)|(1<<(i%8)))
}

// Clear sets bit i to 0.
func (b BitVec) Clear(i uint) {
	o := b.byteAt(i)
	b.r.PutByte(o, b.r.Byte(o)&^(1<<(i%8)))
}

// Flip toggles bit i and returns its new value. This is the primitive the
// buddy allocator uses to maintain the pair_state XOR invariant: flipping
// once records "one buddy's allocation state changed", and the resulting
// bit is directly "exactly one buddy allocated".
func (b BitVec) Flip(i uint) bool {
	o := b.byteAt(i)
	v := b.r.Byte(o) ^ (1 << (i % 8))
	b.r.PutByte(o, v)
	return v&(1<<(i%8)) != 0
}

// Zero clears every bit in [0, nbits).
func (b BitVec) Zero(nbits int) {
	b.r.Zero(b.base, ByteLen(nbits))
}
