// Package list implements the intrusive, circular, doubly-linked list used
// by the buddy allocator's free lists.
//
// A list is a sentinel node whose next/prev point at itself when empty.
// List nodes are not separate objects: they are the first 16 bytes of
// whatever free block they describe, exactly as original_source/src/list.c
// reuses a block's own storage for its Avail-style header. That is why
// every operation here takes a region.Region plus bare offset.Offset
// values instead of a typed node pointer — there is no payload type to
// point at until the caller decides what the bytes mean.
package list

import (
	"github.com/dkvlabs/hived/internal/offset"
	"github.com/dkvlabs/hived/internal/region"
)

const (
	nextOff = 0
	prevOff = 8

	// Size is the number of bytes a list node occupies at the head of its
	// payload. The buddy allocator's LEAF_SIZE must be at least this large.
	Size = 16
)

func next(r region.Region, n offset.Offset) offset.Offset { return r.Offset(n.Add(nextOff)) }
func prev(r region.Region, n offset.Offset) offset.Offset { return r.Offset(n.Add(prevOff)) }

func setNext(r region.Region, n, v offset.Offset) { r.PutOffset(n.Add(nextOff), v) }
func setPrev(r region.Region, n, v offset.Offset) { r.PutOffset(n.Add(prevOff), v) }

// Init makes the node at sentinel into an empty list.
func Init(r region.Region, sentinel offset.Offset) {
	setNext(r, sentinel, sentinel)
	setPrev(r, sentinel, sentinel)
}

// Empty reports whether the list headed by sentinel has no elements.
func Empty(r region.Region, sentinel offset.Offset) bool {
	return next(r, sentinel) == sentinel
}

// Push inserts e immediately after sentinel (LIFO order).
func Push(r region.Region, sentinel, e offset.Offset) {
	head := next(r, sentinel)
	setNext(r, e, head)
	setPrev(r, e, sentinel)
	setPrev(r, head, e)
	setNext(r, sentinel, e)
}

// Pop removes and returns the element immediately after sentinel. The
// caller must check Empty first; popping an empty list panics.
func Pop(r region.Region, sentinel offset.Offset) offset.Offset {
	e := next(r, sentinel)
	if e == sentinel {
		panic("list: pop of empty list")
	}
	Remove(r, e)
	return e
}

// Remove splices e out of whatever list it is currently linked into. No
// handle to that list is needed.
func Remove(r region.Region, e offset.Offset) {
	p, n := prev(r, e), next(r, e)
	setNext(r, p, n)
	setPrev(r, n, p)
}
