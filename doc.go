// Package hived implements a persistent, hierarchical key-value store
// backed by a single memory-mapped file.
//
// The file is divided into two layers. The lower layer is a buddy
// allocator (internal/buddy) that carves the file into power-of-two
// blocks and hands them out by offset rather than by pointer, so that
// the same file can be reopened at a different virtual address without
// any on-disk fix-up. The upper layer is a node graph of directories and
// leaves built out of allocator blocks: directories hold named children,
// leaves hold a single Value.
//
// A Database is opened with Open and must eventually be closed with
// Close, which unmaps the file without altering its contents. Destroy
// frees every node in the tree first, then closes the database, leaving
// an empty but still valid store behind.
//
//	db, err := hived.Open("store.hived", hived.WithInitialSize(1<<20))
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	root := db.Root()
//	dir, err := db.CreateDirectory(root, "configs")
//	leaf, err := db.CreateLeaf(dir, "timeout", hived.Int(30))
//
// Every exported operation is synchronous and single-threaded: a
// Database does not arbitrate concurrent access from multiple
// goroutines or processes.
package hived
