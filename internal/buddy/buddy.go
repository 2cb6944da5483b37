// Package buddy is the in-file buddy allocator: it carves a region.Region
// into power-of-two blocks and tracks their split/allocation state with
// bit vectors stored inside the region itself, so that reopening the
// backing file reconstructs no runtime state that wasn't already on disk.
//
// It is a direct port of the xv6-style allocator in
// original_source/src/allocator.c (bd_alloc/bd_free/bd_mark/bd_initfree),
// adapted the way github.com/bufbuild/hyperpb's internal/arena adapts a
// chunked bump allocator to Go idiom: typed offsets instead of raw
// pointers (internal/offset), explicit bit vectors instead of a `char*`
// cast over the arena (internal/bitvec), and errors instead of an
// `assert(false)` on exhaustion — see DESIGN.md for why that last
// deviation was necessary to make exhaustion observable at all instead of
// crashing the process.
package buddy

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/dkvlabs/hived/internal/bitvec"
	"github.com/dkvlabs/hived/internal/list"
	"github.com/dkvlabs/hived/internal/offset"
	"github.com/dkvlabs/hived/internal/region"
)

// LeafSize is the smallest block size in bytes. It must be at least
// list.Size, since a free block's first bytes double as its free-list
// node.
const LeafSize = 16

// ErrOutOfArena is returned by Allocate when no free block of sufficient
// size exists anywhere in the arena.
var ErrOutOfArena = errors.New("buddy: arena exhausted")

// sizeInfoRecord is the on-disk shape of one size class's metadata: just
// the free-list sentinel (next/prev offsets). Everything else about a
// size class — where its pair_state and split vectors live, how many bits
// they hold — is recomputed arithmetically from nsizes on every open,
// rather than stored.
const sizeInfoRecord = list.Size

// Allocator manages allocation over a region.Region using the buddy
// scheme.
type Allocator struct {
	r        region.Region
	nsizes   int
	pairOff  []offset.Offset
	splitOff []offset.Offset
	metaEnd  offset.Offset // end of the allocator's own bit-vector tables
	heapStart offset.Offset // first byte available to Allocate; metaEnd plus the caller's reserved header, rounded up
	usable   offset.Offset // end of allocatable heap, <= len(r), rounded down to LeafSize
	heapEnd  offset.Offset // next-power-of-two top, may exceed usable
}

func blkSize(k int) uint64 { return uint64(LeafSize) << uint(k) }

func nblocksAt(k, nsizes int) uint64 { return uint64(1) << uint(nsizes-1-k) }

func ilog2(n uint64) int {
	if n == 0 {
		return 0
	}
	return bits.Len64(n) - 1
}

// firstK returns the smallest k such that LeafSize*2^k >= nbytes.
func firstK(nbytes int) int {
	if nbytes <= LeafSize {
		return 0
	}
	return ilog2(uint64(nbytes-1)/LeafSize) + 1
}

func blockIndex(k int, p offset.Offset) uint64 {
	return uint64(p) / blkSize(k)
}

func blockIndexNext(k int, p offset.Offset) uint64 {
	n := uint64(p) / blkSize(k)
	if uint64(p)%blkSize(k) != 0 {
		n++
	}
	return n
}

func addr(k int, bi uint64) offset.Offset {
	return offset.Offset(bi * blkSize(k))
}

// computeNSizes picks the number of size classes needed to cover heapLen
// bytes, rounding the managed heap up to the next power of two.
func computeNSizes(heapLen uint64) int {
	nsizes := ilog2(heapLen/LeafSize) + 1
	if heapLen > LeafSize<<uint(nsizes-1) {
		nsizes++
	}
	return nsizes
}

// layout computes the (deterministic, reopen-stable) byte offsets of
// every metadata vector for an arena with the given number of size
// classes.
func layout(nsizes int) (pairOff, splitOff []offset.Offset, metaEnd offset.Offset) {
	pairOff = make([]offset.Offset, nsizes)
	splitOff = make([]offset.Offset, nsizes)

	p := uint64(nsizes * sizeInfoRecord)

	for k := 0; k < nsizes; k++ {
		var nb uint64
		if k < nsizes-1 {
			nb = nblocksAt(k+1, nsizes)
		} else {
			nb = nblocksAt(k, nsizes)
		}
		pairOff[k] = offset.Offset(p)
		p += uint64(bitvec.ByteLen(int(nb)))
	}

	for k := 1; k < nsizes; k++ {
		splitOff[k] = offset.Offset(p)
		p += uint64(bitvec.ByteLen(int(nblocksAt(k, nsizes))))
	}

	p = offset.RoundUpTo(p, LeafSize)
	return pairOff, splitOff, offset.Offset(p)
}

func (a *Allocator) sentinel(k int) offset.Offset {
	return offset.Offset(k * sizeInfoRecord)
}

func (a *Allocator) pairState(k int) bitvec.BitVec {
	return bitvec.New(a.r, a.pairOff[k])
}

func (a *Allocator) split(k int) bitvec.BitVec {
	return bitvec.New(a.r, a.splitOff[k])
}

func maxSize(nsizes int) int { return nsizes - 1 }

// New lays out a fresh allocator over r and bootstraps it: metadata and
// tail padding are marked allocated before any free list is populated.
// reserve is a number of bytes the caller wants carved out immediately
// after the allocator's own bit-vector tables, before any block becomes
// allocatable — see (*Allocator).MetaEnd and (*Allocator).HeapStart. Pass
// 0 if the caller has no such header.
func New(r region.Region, reserve int) (*Allocator, error) {
	nsizes := computeNSizes(uint64(len(r)))
	pairOff, splitOff, metaEnd := layout(nsizes)
	heapStart := metaEnd.Add(reserve).RoundUpTo(LeafSize)

	usable := offset.Offset(uint64(len(r)) / LeafSize * LeafSize)
	heapEnd := offset.Offset(blkSize(maxSize(nsizes)))

	if uint64(heapStart) > uint64(usable) {
		return nil, errors.Errorf("buddy: region of %d bytes too small for %d size classes of metadata plus a %d-byte header", len(r), nsizes, reserve)
	}

	a := &Allocator{r: r, nsizes: nsizes, pairOff: pairOff, splitOff: splitOff, metaEnd: metaEnd, heapStart: heapStart, usable: usable, heapEnd: heapEnd}

	r.Zero(0, int(heapStart))
	for k := 0; k < nsizes; k++ {
		list.Init(r, a.sentinel(k))
	}

	a.mark(0, heapStart)
	if heapEnd > usable {
		a.mark(usable, heapEnd)
	}

	free := a.initFree(heapStart, usable)
	want := uint64(usable) - uint64(heapStart)
	if free != want {
		return nil, errors.Errorf("buddy: free-list bootstrap miscounted free bytes: got %d want %d", free, want)
	}

	return a, nil
}

// Open recomputes an allocator's layout over an already-initialized
// region without touching any bit, free list, or byte: the bytes on disk
// are trusted as-is. reserve must be the same value passed to New when
// the region was first created.
func Open(r region.Region, reserve int) (*Allocator, error) {
	nsizes := computeNSizes(uint64(len(r)))
	pairOff, splitOff, metaEnd := layout(nsizes)
	heapStart := metaEnd.Add(reserve).RoundUpTo(LeafSize)
	usable := offset.Offset(uint64(len(r)) / LeafSize * LeafSize)
	heapEnd := offset.Offset(blkSize(maxSize(nsizes)))

	if uint64(heapStart) > uint64(usable) {
		return nil, errors.Errorf("buddy: region of %d bytes too small for %d size classes of metadata plus a %d-byte header", len(r), nsizes, reserve)
	}

	return &Allocator{r: r, nsizes: nsizes, pairOff: pairOff, splitOff: splitOff, metaEnd: metaEnd, heapStart: heapStart, usable: usable, heapEnd: heapEnd}, nil
}

// mark flags every block overlapping [start, stop) as allocated, at every
// size class, toggling pair_state so that two blocks marked in the same
// call correctly cancel back to "both allocated" (bit 0).
func (a *Allocator) mark(start, stop offset.Offset) {
	for k := 0; k < a.nsizes; k++ {
		bi := blockIndex(k, start)
		bj := blockIndexNext(k, stop)
		for ; bi < bj; bi++ {
			if k > 0 {
				a.split(k).Set(uint(bi))
			}
			a.pairState(k).Flip(uint(bi / 2))
		}
	}
}

// initFreePair puts the free half of the boundary pair at block bi (size
// k) onto the free list, if that pair indeed has exactly one free buddy.
func (a *Allocator) initFreePair(k int, bi uint64, isLeft bool) uint64 {
	buddy := bi ^ 1
	if bi >= nblocksAt(k, a.nsizes) {
		return 0
	}
	if !a.pairState(k).Test(uint(bi / 2)) {
		return 0
	}
	if isLeft {
		max := bi
		if buddy > max {
			max = buddy
		}
		list.Push(a.r, a.sentinel(k), addr(k, max))
	} else {
		min := bi
		if buddy < min {
			min = buddy
		}
		list.Push(a.r, a.sentinel(k), addr(k, min))
	}
	return blkSize(k)
}

// initFree populates every free list from the only two boundary pairs
// that can possibly have a free buddy after bootstrap marking: the pair
// adjacent to the end of the metadata, and the pair adjacent to the end
// of the caller's requested length.
func (a *Allocator) initFree(left, right offset.Offset) uint64 {
	var free uint64
	for k := 0; k < maxSize(a.nsizes); k++ {
		l := blockIndexNext(k, left)
		r := blockIndex(k, right)
		free += a.initFreePair(k, l, true)
		if r <= l {
			continue
		}
		free += a.initFreePair(k, r, false)
	}
	return free
}

// Allocate returns an offset to a block of at least nbytes, or
// ErrOutOfArena if the arena has no free block large enough.
func (a *Allocator) Allocate(nbytes int) (offset.Offset, error) {
	fk := firstK(nbytes)
	k := fk
	for ; k < a.nsizes; k++ {
		if !list.Empty(a.r, a.sentinel(k)) {
			break
		}
	}
	if k >= a.nsizes {
		return offset.Null, ErrOutOfArena
	}

	p := list.Pop(a.r, a.sentinel(k))
	a.pairState(k).Flip(uint(blockIndex(k, p) / 2))

	for k > fk {
		q := p.Add(int(blkSize(k - 1)))
		a.split(k).Set(uint(blockIndex(k, p)))
		a.pairState(k - 1).Set(uint(blockIndex(k, p)))
		list.Push(a.r, a.sentinel(k-1), q)
		k--
	}

	return p, nil
}

// sizeOf finds the size class at which p is currently allocated, by
// finding the split bit one level up that records it.
func (a *Allocator) sizeOf(p offset.Offset) int {
	for k := 0; k < maxSize(a.nsizes); k++ {
		if a.split(k + 1).Test(uint(blockIndex(k+1, p))) {
			return k
		}
	}
	// No ancestor was ever split: p was handed out whole, at the top size
	// class. (original_source's `size()` instead falls through to 0 here,
	// which only happens to be correct when nsizes == 1; see DESIGN.md.)
	return maxSize(a.nsizes)
}

// Free returns the block at p to its free list, coalescing with its
// buddy at each level as long as the buddy is also free.
func (a *Allocator) Free(p offset.Offset) {
	k := a.sizeOf(p)
	for ; k < maxSize(a.nsizes); k++ {
		bi := blockIndex(k, p)
		buddy := bi ^ 1
		if a.pairState(k).Flip(uint(bi / 2)) {
			break
		}
		q := addr(k, buddy)
		list.Remove(a.r, q)
		if buddy%2 == 0 {
			p = q
		}
		a.split(k + 1).Clear(uint(blockIndex(k+1, p)))
	}
	list.Push(a.r, a.sentinel(k), p)
}

// MetaEnd returns the offset one past the allocator's own bit-vector
// tables — the start of the caller's reserved header, if any, or of the
// allocatable heap if reserve was 0.
func (a *Allocator) MetaEnd() offset.Offset { return a.metaEnd }

// HeapStart returns the offset of the first byte available for user
// allocation, i.e. MetaEnd plus the reserved header size passed to New
// or Open, rounded up to LeafSize.
func (a *Allocator) HeapStart() offset.Offset { return a.heapStart }

// Usable returns the offset one past the last byte available for user
// allocation.
func (a *Allocator) Usable() offset.Offset { return a.usable }

// NSizes returns the number of size classes the allocator manages.
func (a *Allocator) NSizes() int { return a.nsizes }

// FreeBytes sums the capacity of every block currently on any free list.
// It is O(live free blocks), intended for tests and diagnostics, not the
// allocation hot path.
func (a *Allocator) FreeBytes() uint64 {
	var total uint64
	for k := 0; k < a.nsizes; k++ {
		total += a.walkFree(k)
	}
	return total
}

func (a *Allocator) walkFree(k int) uint64 {
	sentinel := a.sentinel(k)
	var total uint64
	for e := a.r.Offset(sentinel); e != sentinel; e = a.r.Offset(e) {
		total += blkSize(k)
	}
	return total
}

// DebugString renders the free-list population at each size class, the
// Go analogue of original_source's bd_print. Nothing in this module
// calls it; it is a diagnostic aid only.
func (a *Allocator) DebugString() string {
	s := fmt.Sprintf("buddy: %d size classes, meta_end=%d heap_start=%d usable=%d heap_end=%d\n", a.nsizes, a.metaEnd, a.heapStart, a.usable, a.heapEnd)
	for k := 0; k < a.nsizes; k++ {
		count := 0
		sentinel := a.sentinel(k)
		for e := a.r.Offset(sentinel); e != sentinel; e = a.r.Offset(e) {
			count++
		}
		s += fmt.Sprintf("  size %d (blksz %d): %d free blocks\n", k, blkSize(k), count)
	}
	return s
}
