package hived

import "github.com/dkvlabs/hived/internal/offset"

// Leaf is a named value stored under a Directory, the Go analogue of
// original_source's Leaf (a Node whose type is not DIR).
type Leaf struct{ node }

// Name returns the leaf's name.
func (l Leaf) Name() string { return l.name() }

// Type returns the type of the leaf's value.
func (l Leaf) Type() NodeType { return l.nodeType() }

// UpdateLeaf replaces leaf's value with newValue, which must have the
// same Type the leaf was created with — original_source's
// database_update_leaf silently accepts a value of any union member,
// but always rewrites leaf->type to match the Types argument that is no
// longer present once Value carries its own Type; requiring Type to
// match keeps that behavior without resurrecting the now-redundant
// parameter.
//
// Per database_update_leaf's ordering, the new string payload (if any)
// is allocated before the old one is freed, so a failed allocation
// leaves leaf's existing value untouched.
func (db *Database) UpdateLeaf(leaf Leaf, newValue Value) error {
	if err := db.checkWritable(); err != nil {
		return err
	}
	if leaf.nodeType() == TypeDirectory || leaf.nodeType() != newValue.Type {
		return ErrInvalidArgument
	}

	oldStrOff := offset.Null
	if leaf.nodeType() == TypeString {
		oldStrOff = leaf.r().Offset(leaf.payload())
	}

	if err := leaf.encodeValue(newValue); err != nil {
		return err
	}
	if oldStrOff != offset.Null {
		db.alloc.Free(oldStrOff)
	}

	db.logf(traceLevel, "updated leaf %q", leaf.name())
	return nil
}

// LeafValue returns a deep copy of leaf's current value, per
// database_get_leaf_value.
func (db *Database) LeafValue(leaf Leaf) (Value, error) {
	if err := db.checkOpen(); err != nil {
		return Value{}, err
	}
	if leaf.nodeType() == TypeDirectory {
		return Value{}, ErrInvalidArgument
	}
	v, err := leaf.decodeValue()
	if err != nil {
		return Value{}, err
	}
	return v.clone()
}

// DeleteLeaf removes leaf from its parent, freeing its value and name.
func (db *Database) DeleteLeaf(leaf Leaf) error {
	if err := db.checkWritable(); err != nil {
		return err
	}
	if leaf.nodeType() == TypeDirectory {
		return ErrInvalidArgument
	}
	leaf.freeValue()
	unlink(leaf.node)
	freeNode(leaf.node)
	return nil
}
