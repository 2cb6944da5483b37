package hived

import "github.com/dkvlabs/hived/internal/offset"

// Directory is a named container of child directories and leaves, the Go
// analogue of original_source's Directory (itself just a Node of type
// DIR). A Directory value is a lightweight handle into the arena; it
// stays valid until the underlying node is deleted or the Database is
// closed.
type Directory struct{ node }

// Name returns the directory's name. The root directory's name is "".
func (d Directory) Name() string { return d.name() }

// directoryAt wraps an existing node as a Directory. It does not check
// the node's type; callers that got off from untrusted input should
// check Type() first.
func directoryAt(db *Database, off offset.Offset) Directory {
	return Directory{node{db: db, off: off}}
}

// CreateDirectory creates a new, empty subdirectory named name under
// parent. If parent is the zero Directory, the database's root is used,
// matching database_create_directory's `if (!parent) parent = db->root`.
// name may be "": create_node allocates a zero-length name buffer for
// any non-root node just as readily as a named one, and nothing else
// requires a non-root name to be non-empty.
//
// original_source leaves duplicate names unchecked ("todo check for
// existing name?"); this module carries that forward rather than
// inventing a uniqueness constraint nothing here requires — see
// DESIGN.md.
func (db *Database) CreateDirectory(parent Directory, name string) (Directory, error) {
	if err := db.checkWritable(); err != nil {
		return Directory{}, err
	}
	if parent.off == offset.Null {
		parent = db.Root()
	}
	if parent.nodeType() != TypeDirectory {
		return Directory{}, ErrInvalidArgument
	}

	child, err := newNode(db, TypeDirectory, name)
	if err != nil {
		return Directory{}, err
	}
	child.setChildOffset(offset.Null)
	linkChild(parent.node, child)

	db.logf(traceLevel, "created directory %q under %#x", name, parent.off)
	return Directory{child}, nil
}

// CreateLeaf creates a new leaf named name holding value under parent. If
// parent is the zero Directory, the database's root is used. As with
// CreateDirectory, name may be "".
func (db *Database) CreateLeaf(parent Directory, name string, value Value) (Leaf, error) {
	if err := db.checkWritable(); err != nil {
		return Leaf{}, err
	}
	if value.Type == TypeDirectory || value.Type == 0 {
		return Leaf{}, ErrInvalidArgument
	}
	if parent.off == offset.Null {
		parent = db.Root()
	}
	if parent.nodeType() != TypeDirectory {
		return Leaf{}, ErrInvalidArgument
	}

	child, err := newNode(db, value.Type, name)
	if err != nil {
		return Leaf{}, err
	}
	if err := child.encodeValue(value); err != nil {
		freeNode(child)
		return Leaf{}, err
	}
	linkChild(parent.node, child)

	db.logf(traceLevel, "created leaf %q under %#x", name, parent.off)
	return Leaf{child}, nil
}

// DeleteDirectory removes dir, which must be empty and must not be the
// database's root, per database_delete_directory.
func (db *Database) DeleteDirectory(dir Directory) error {
	if err := db.checkWritable(); err != nil {
		return err
	}
	if dir.nodeType() != TypeDirectory {
		return ErrInvalidArgument
	}
	if dir.off == db.root {
		return ErrInvalidArgument
	}
	if dir.childOffset() != offset.Null {
		return ErrInvalidArgument
	}
	unlink(dir.node)
	freeNode(dir.node)
	return nil
}

// ClearDirectory deletes every descendant of dir without deleting dir
// itself, the Go analogue of database_clear_directory/clear_dir_dfs. If
// dir is the zero Directory, the database's root is used.
func (db *Database) ClearDirectory(dir Directory) error {
	if err := db.checkWritable(); err != nil {
		return err
	}
	if dir.off == offset.Null {
		dir = db.Root()
	}
	if dir.nodeType() != TypeDirectory {
		return ErrInvalidArgument
	}
	db.clearDirDFS(dir.node)
	return nil
}

// clearDirDFS mirrors clear_dir_dfs: it frees every child before moving
// to the next sibling, recursing into directories first. Reading `next`
// before freeing the current node matters, since freeing overwrites the
// node's own bytes.
func (db *Database) clearDirDFS(dir node) {
	cur := dir.childOffset()
	for cur != offset.Null {
		n := node{db: db, off: cur}
		if n.nodeType() == TypeDirectory {
			db.clearDirDFS(n)
		} else {
			n.freeValue()
		}
		next := n.next()
		freeNode(n)
		cur = next
	}
	dir.setChildOffset(offset.Null)
}

// Iterate returns an Iterator over dir's direct children. If dir is the
// zero Directory, the database's root is used.
func (db *Database) Iterate(dir Directory) *Iterator {
	if dir.off == offset.Null {
		dir = db.Root()
	}
	if dir.nodeType() != TypeDirectory {
		return &Iterator{db: db, cur: offset.Null}
	}
	return &Iterator{db: db, cur: dir.childOffset()}
}
