package hived

import "github.com/dkvlabs/hived/internal/offset"

// Iterator walks the direct children of a Directory, in most-recently-
// created-first order — the same order database_create_directory and
// database_create_leaf build the list in, since both push new children
// onto the front. It is the Go analogue of original_source's Iterator.
type Iterator struct {
	db  *Database
	cur offset.Offset
}

// Valid reports whether the iterator is currently positioned on a child.
func (it *Iterator) Valid() bool { return it.cur != offset.Null }

// Type returns the type of the current child, or 0 if Valid is false.
func (it *Iterator) Type() NodeType {
	if !it.Valid() {
		return 0
	}
	return node{db: it.db, off: it.cur}.nodeType()
}

// Name returns the name of the current child, or "" if Valid is false.
func (it *Iterator) Name() string {
	if !it.Valid() {
		return ""
	}
	return node{db: it.db, off: it.cur}.name()
}

// Value returns a deep copy of the current child's value. It returns
// ErrInvalidArgument if the current child is a directory or the
// iterator is not valid.
func (it *Iterator) Value() (Value, error) {
	if !it.Valid() {
		return Value{}, ErrInvalidArgument
	}
	return it.db.LeafValue(Leaf{node{db: it.db, off: it.cur}})
}

// Directory returns the current child as a Directory. It returns the
// zero Directory and false if the current child is not a directory or
// the iterator is not valid.
func (it *Iterator) Directory() (Directory, bool) {
	if !it.Valid() {
		return Directory{}, false
	}
	n := node{db: it.db, off: it.cur}
	if n.nodeType() != TypeDirectory {
		return Directory{}, false
	}
	return Directory{n}, true
}

// HasNext reports whether a sibling follows the current child.
func (it *Iterator) HasNext() bool {
	return it.Valid() && node{db: it.db, off: it.cur}.next() != offset.Null
}

// Next advances the iterator to the next sibling, returning false
// (without moving) if there is none.
func (it *Iterator) Next() bool {
	if !it.HasNext() {
		return false
	}
	it.cur = node{db: it.db, off: it.cur}.next()
	return true
}
