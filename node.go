package hived

import (
	"math"

	"golang.org/x/text/unicode/norm"

	"github.com/dkvlabs/hived/internal/offset"
	"github.com/dkvlabs/hived/internal/region"
)

// NodeType identifies what a node in the tree holds. The values match
// original_source/include/types.h's Types enum exactly, so that a dump
// produced against one version of this package reads the same way
// against another.
type NodeType byte

const (
	// TypeDirectory marks a node that holds named children.
	TypeDirectory NodeType = 1
	// TypeInt marks a leaf holding an int32.
	TypeInt NodeType = 2
	// TypeString marks a leaf holding a UTF-8 string.
	TypeString NodeType = 4
	// TypeFloat marks a leaf holding a float32.
	TypeFloat NodeType = 8
	// TypeBool marks a leaf holding a bool.
	TypeBool NodeType = 16
)

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// node is the on-disk record shared by every Directory and Leaf, the Go
// analogue of original_source/include/internals.h's struct Node. Unlike
// the C original, next/prev/name/child live at fixed byte offsets within
// one fixed-size allocator block instead of behind separate pointers and
// allocations; only the name bytes themselves are a second allocation,
// mirroring create_node's separate alloc_malloc for the name.
//
// Layout (56 bytes):
//
//	0  type      byte
//	8  next      Offset
//	16 prev      Offset
//	24 nameOff   Offset
//	32 nameLen   uint32
//	40 payload   [16]byte
//
// prev doubles as the parent link for a directory's first child, exactly
// as in the original: a freshly created node's prev points at its parent
// until a sibling is pushed in front of it, at which point prev instead
// points at that sibling. Distinguishing "prev is my parent" from "prev
// is my previous sibling" is done the same way the original does it: by
// comparing against the parent's own child pointer, not by a tag bit.
const (
	fType    = offset.Offset(0)
	fNext    = offset.Offset(8)
	fPrev    = offset.Offset(16)
	fNameOff = offset.Offset(24)
	fNameLen = offset.Offset(32)
	fPayload = offset.Offset(40)

	payloadSize = 16
	nodeSize    = int(fPayload) + payloadSize
)

// node is a handle to a node record living at off in db's arena.
type node struct {
	db  *Database
	off offset.Offset
}

func (n node) r() region.Region { return n.db.mapping.Region() }

func (n node) nodeType() NodeType { return NodeType(n.r().Byte(n.off + fType)) }

func (n node) setNodeType(t NodeType) { n.r().PutByte(n.off+fType, byte(t)) }

func (n node) next() offset.Offset { return n.r().Offset(n.off + fNext) }
func (n node) prev() offset.Offset { return n.r().Offset(n.off + fPrev) }

func (n node) setNext(o offset.Offset) { n.r().PutOffset(n.off+fNext, o) }
func (n node) setPrev(o offset.Offset) { n.r().PutOffset(n.off+fPrev, o) }

func (n node) nameOffset() offset.Offset { return n.r().Offset(n.off + fNameOff) }
func (n node) nameLen() int              { return int(n.r().Uint32(n.off + fNameLen)) }

// name reads the node's name out of the arena into a fresh Go string.
// The string() conversion below copies the bytes, so the result never
// aliases arena memory.
func (n node) name() string {
	l := n.nameLen()
	if l == 0 {
		return ""
	}
	return string(n.r().Slice(n.nameOffset(), l))
}

func (n node) payload() offset.Offset { return n.off + fPayload }

// childOffset returns a directory node's first-child pointer, stored in
// its payload the way create_dir_node's anonymous union stores `child`.
func (n node) childOffset() offset.Offset   { return n.r().Offset(n.payload()) }
func (n node) setChildOffset(c offset.Offset) { n.r().PutOffset(n.payload(), c) }

// createName allocates and copies name into the arena, NFC-normalized so
// that visually identical names compare byte-equal regardless of how the
// caller composed them.
func createName(db *Database, name string) (offset.Offset, int, error) {
	if name == "" {
		return offset.Null, 0, nil
	}
	normalized := norm.NFC.String(name)
	b := []byte(normalized)
	if len(b) > math.MaxUint32 {
		return offset.Null, 0, ErrInvalidArgument
	}
	o, err := db.alloc.Allocate(len(b))
	if err != nil {
		return offset.Null, 0, allocErr(err)
	}
	db.mapping.Region().PutBytes(o, b)
	return o, len(b), nil
}

// newNode allocates a fresh node record of type t named name, with
// next/prev left zeroed for the caller to link in.
func newNode(db *Database, t NodeType, name string) (node, error) {
	nameOff, nameLen, err := createName(db, name)
	if err != nil {
		return node{}, err
	}

	o, err := db.alloc.Allocate(nodeSize)
	if err != nil {
		return node{}, allocErr(err)
	}

	r := db.mapping.Region()
	r.Zero(o, nodeSize)
	n := node{db: db, off: o}
	n.setNodeType(t)
	n.setNext(offset.Null)
	n.setPrev(offset.Null)
	r.PutOffset(o+fNameOff, nameOff)
	r.PutUint32(o+fNameLen, uint32(nameLen))
	return n, nil
}

// linkChild pushes child onto parent's child list, in the same order as
// database_create_directory/database_create_leaf: the new node becomes
// the head, its prev points at parent (the "parent-via-prev" trick), and
// the previous head's prev is retargeted at the new node.
func linkChild(parent node, child node) {
	head := parent.childOffset()
	if head != offset.Null {
		node{db: parent.db, off: head}.setPrev(child.off)
	}
	child.setNext(head)
	child.setPrev(parent.off)
	parent.setChildOffset(child.off)
}

// unlink splices n out of its parent's child list. It mirrors
// delete_node's pointer surgery: if n has a next sibling, that sibling's
// prev is retargeted at n's prev; if n was the head (its prev is the
// parent itself, i.e. the parent's child pointer is n), the parent's
// child pointer is retargeted at n's next instead.
func unlink(n node) {
	next, prev := n.next(), n.prev()
	if next != offset.Null {
		node{db: n.db, off: next}.setPrev(prev)
	}
	parent := node{db: n.db, off: prev}
	if parent.childOffset() == n.off {
		parent.setChildOffset(next)
	} else {
		parent.setNext(next)
	}
}

// freeNode releases a node's name and record storage. It does not unlink
// it or free any leaf payload string; callers must do that first.
func freeNode(n node) {
	if l := n.nameLen(); l > 0 {
		n.db.alloc.Free(n.nameOffset())
	}
	n.db.alloc.Free(n.off)
}
