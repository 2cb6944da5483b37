package hived

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func open(t *testing.T, opts ...Option) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.hived")
	allOpts := append([]Option{WithInitialSize(1 << 20)}, opts...)
	db, err := Open(path, allOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesEmptyRoot(t *testing.T) {
	db := open(t)
	it := db.Iterate(Directory{})
	require.False(t, it.Valid())
}

func TestCreateDirectoryAndLeaf(t *testing.T) {
	db := open(t)
	root := db.Root()

	cfgDir, err := db.CreateDirectory(root, "configs")
	require.NoError(t, err)
	require.Equal(t, "configs", cfgDir.Name())

	leaf, err := db.CreateLeaf(cfgDir, "timeout", Int(30))
	require.NoError(t, err)
	require.Equal(t, "timeout", leaf.Name())
	require.Equal(t, TypeInt, leaf.Type())

	v, err := db.LeafValue(leaf)
	require.NoError(t, err)
	require.Equal(t, int32(30), v.Int)
}

func TestCreateLeafRejectsNonDirectoryParent(t *testing.T) {
	db := open(t)
	root := db.Root()
	leaf, err := db.CreateLeaf(root, "x", Int(1))
	require.NoError(t, err)

	_, err = db.CreateLeaf(Directory{leaf.node}, "y", Int(2))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdateLeaf(t *testing.T) {
	db := open(t)
	root := db.Root()
	leaf, err := db.CreateLeaf(root, "name", String("alice"))
	require.NoError(t, err)

	require.NoError(t, db.UpdateLeaf(leaf, String("bob")))
	v, err := db.LeafValue(leaf)
	require.NoError(t, err)
	require.Equal(t, "bob", v.Str)

	err = db.UpdateLeaf(leaf, Int(1))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteLeaf(t *testing.T) {
	db := open(t)
	root := db.Root()
	leaf, err := db.CreateLeaf(root, "a", Bool(true))
	require.NoError(t, err)

	require.NoError(t, db.DeleteLeaf(leaf))

	it := db.Iterate(root)
	require.False(t, it.Valid())
}

func TestDeleteDirectoryRejectsNonEmpty(t *testing.T) {
	db := open(t)
	root := db.Root()
	dir, err := db.CreateDirectory(root, "d")
	require.NoError(t, err)
	_, err = db.CreateLeaf(dir, "x", Int(1))
	require.NoError(t, err)

	err = db.DeleteDirectory(dir)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteDirectoryRejectsRoot(t *testing.T) {
	db := open(t)
	err := db.DeleteDirectory(db.Root())
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestClearDirectoryRecursive(t *testing.T) {
	db := open(t)
	root := db.Root()
	dir, err := db.CreateDirectory(root, "d")
	require.NoError(t, err)
	sub, err := db.CreateDirectory(dir, "sub")
	require.NoError(t, err)
	_, err = db.CreateLeaf(sub, "leaf", Float(1.5))
	require.NoError(t, err)
	_, err = db.CreateLeaf(dir, "leaf2", Bool(false))
	require.NoError(t, err)

	require.NoError(t, db.ClearDirectory(dir))
	it := db.Iterate(dir)
	require.False(t, it.Valid())
}

func TestIterateMultipleChildrenMostRecentFirst(t *testing.T) {
	db := open(t)
	root := db.Root()
	_, err := db.CreateLeaf(root, "first", Int(1))
	require.NoError(t, err)
	_, err = db.CreateLeaf(root, "second", Int(2))
	require.NoError(t, err)

	it := db.Iterate(root)
	require.True(t, it.Valid())
	require.Equal(t, "second", it.Name())
	require.True(t, it.Next())
	require.Equal(t, "first", it.Name())
	require.False(t, it.HasNext())
}

func TestReopenPreservesTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.hived")

	db, err := Open(path, WithInitialSize(1<<20))
	require.NoError(t, err)
	root := db.Root()
	_, err = db.CreateDirectory(root, "persisted")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()

	it := db2.Iterate(db2.Root())
	require.True(t, it.Valid())
	require.Equal(t, "persisted", it.Name())
	require.Equal(t, TypeDirectory, it.Type())
}

func TestClosedDatabaseRejectsOperations(t *testing.T) {
	db := open(t)
	require.NoError(t, db.Close())
	_, err := db.CreateDirectory(Directory{}, "x")
	require.ErrorIs(t, err, ErrClosed)
}

func TestDestroyLeavesAnEmptyButReopenableStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.hived")
	db, err := Open(path, WithInitialSize(1<<20))
	require.NoError(t, err)
	root := db.Root()
	_, err = db.CreateLeaf(root, "x", Int(1))
	require.NoError(t, err)

	require.NoError(t, db.Destroy())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
	require.False(t, db2.Iterate(db2.Root()).Valid())
}

func TestReadOnlyRejectsMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.hived")
	db, err := Open(path, WithInitialSize(1<<20))
	require.NoError(t, err)
	root := db.Root()
	leaf, err := db.CreateLeaf(root, "x", Int(1))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ro, err := Open(path, WithReadOnly(true))
	require.NoError(t, err)
	defer ro.Close()

	roLeaf := Leaf{node{db: ro, off: leaf.off}}
	_, err = ro.CreateDirectory(ro.Root(), "y")
	require.ErrorIs(t, err, ErrInvalidArgument)
	err = ro.UpdateLeaf(roLeaf, Int(2))
	require.ErrorIs(t, err, ErrInvalidArgument)

	v, err := ro.LeafValue(roLeaf)
	require.NoError(t, err)
	require.Equal(t, int32(1), v.Int)
}
