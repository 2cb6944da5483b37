// Package region gives the buddy allocator and the node graph typed,
// bounds-checked access to the single byte slice backing a memory-mapped
// arena.
//
// A safe-language port of intrusive structures living inside a managed
// arena is best modeled as a tagged view over a byte region, not as typed
// ownership of the payload. Region is that tagged view: every multi-byte
// field is read and written explicitly with
// encoding/binary rather than by overlaying a Go struct on the mapped
// memory, so the layout is stable across platforms and Go versions and
// never aliases a live Go pointer into OS-managed memory.
package region

import (
	"encoding/binary"

	"github.com/dkvlabs/hived/internal/offset"
)

// Region is the arena's backing bytes, addressed by offset.Offset.
type Region []byte

// Uint64 reads a little-endian uint64 at o.
func (r Region) Uint64(o offset.Offset) uint64 {
	return binary.LittleEndian.Uint64(r[o : o+8])
}

// PutUint64 writes a little-endian uint64 at o.
func (r Region) PutUint64(o offset.Offset, v uint64) {
	binary.LittleEndian.PutUint64(r[o:o+8], v)
}

// Uint32 reads a little-endian uint32 at o.
func (r Region) Uint32(o offset.Offset) uint32 {
	return binary.LittleEndian.Uint32(r[o : o+4])
}

// PutUint32 writes a little-endian uint32 at o.
func (r Region) PutUint32(o offset.Offset, v uint32) {
	binary.LittleEndian.PutUint32(r[o:o+4], v)
}

// Offset reads an Offset value at o.
func (r Region) Offset(o offset.Offset) offset.Offset {
	return offset.Offset(r.Uint64(o))
}

// PutOffset writes an Offset value at o.
func (r Region) PutOffset(o offset.Offset, v offset.Offset) {
	r.PutUint64(o, uint64(v))
}

// Byte reads a single byte at o.
func (r Region) Byte(o offset.Offset) byte {
	return r[o]
}

// PutByte writes a single byte at o.
func (r Region) PutByte(o offset.Offset, v byte) {
	r[o] = v
}

// Slice returns the n bytes starting at o as a direct view into the
// region. Callers must not hold onto the result past the arena's
// lifetime, and must not use it to mutate bytes outside the arena's own
// bookkeeping (it aliases the mapped file).
func (r Region) Slice(o offset.Offset, n int) []byte {
	return r[o : int(o)+n]
}

// PutBytes copies src into the region starting at o.
func (r Region) PutBytes(o offset.Offset, src []byte) {
	copy(r[o:], src)
}

// Zero clears n bytes starting at o.
func (r Region) Zero(o offset.Offset, n int) {
	clear(r[o : int(o)+n])
}

// Len returns the size of the region in bytes.
func (r Region) Len() offset.Offset {
	return offset.Offset(len(r))
}
