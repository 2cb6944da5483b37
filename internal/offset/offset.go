// Package offset provides a typed, file-stable address into a
// memory-mapped arena.
//
// Unlike a native Go pointer, an Offset survives being written to disk and
// mapped back in at a different virtual address on a later run: it is
// always relative to the start of the arena's byte region, never to the
// process's address space: arena cross-references are indices, not owning
// references, so they compose safely with Go's garbage collector and with
// reopening the backing file at a new mmap address.
package offset

// Offset is a byte offset from the start of an arena's backing region.
type Offset uint64

// Null is the sentinel "no offset" value. It is never handed out as a live
// allocation because the arena's metadata table always occupies the first
// bytes of the region (see internal/buddy), so offset 0 is permanently
// reserved.
const Null Offset = 0

// Valid reports whether o is not the null offset.
func (o Offset) Valid() bool {
	return o != Null
}

// Add returns o shifted forward by n bytes.
func (o Offset) Add(n int) Offset {
	return o + Offset(n)
}

// Sub returns the distance in bytes from other to o.
func (o Offset) Sub(other Offset) int64 {
	return int64(o) - int64(other)
}

// RoundUpTo rounds n up to the next multiple of align, which must be a
// power of two.
func RoundUpTo(n uint64, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// RoundUpTo rounds o up to the next multiple of align, which must be a
// power of two.
func (o Offset) RoundUpTo(align uint64) Offset {
	return Offset(RoundUpTo(uint64(o), align))
}
