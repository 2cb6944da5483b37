package hived

import (
	"math"

	"github.com/tiendc/go-deepcopy"

	"github.com/dkvlabs/hived/internal/offset"
)

// Value is the payload a Leaf holds, the Go analogue of
// original_source/include/types.h's Value union. Exactly one of the
// typed fields is meaningful, selected by Type.
type Value struct {
	Type  NodeType
	Int   int32
	Str   string
	Float float32
	Bool  bool
}

// Int returns an int-typed Value.
func Int(v int32) Value { return Value{Type: TypeInt, Int: v} }

// String returns a string-typed Value.
func String(v string) Value { return Value{Type: TypeString, Str: v} }

// Float returns a float-typed Value.
func Float(v float32) Value { return Value{Type: TypeFloat, Float: v} }

// Bool returns a bool-typed Value.
func Bool(v bool) Value { return Value{Type: TypeBool, Bool: v} }

// clone returns a deep copy of v via github.com/tiendc/go-deepcopy. A
// Value's only reference-like field is Str, and the string() conversion
// that produced it already copied its bytes out of the arena, so this is
// belt-and-braces against any future field that does alias arena memory
// rather than a fix for a concrete aliasing bug today.
func (v Value) clone() (Value, error) {
	var out Value
	if err := deepcopy.Copy(&out, &v); err != nil {
		return Value{}, opErr("deepcopy", "", err)
	}
	return out, nil
}

// encodeValue writes v into the node's 16-byte payload area, per node.go's
// record layout, and sets the node's type to v.Type. For a string it
// allocates a new buffer for the bytes and does not free any previous
// one; UpdateLeaf frees the old buffer only after this succeeds —
// mirroring database_update_leaf's "allocate the new copy before giving
// up the old one" ordering, so a failed allocation leaves the existing
// value intact.
func (n node) encodeValue(v Value) error {
	r := n.r()
	p := n.payload()

	switch v.Type {
	case TypeInt:
		r.PutUint32(p, uint32(v.Int))
	case TypeFloat:
		r.PutUint32(p, math.Float32bits(v.Float))
	case TypeBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		r.PutByte(p, b)
	case TypeString:
		b := []byte(v.Str)
		if len(b) > math.MaxUint32 {
			return ErrInvalidArgument
		}
		so, err := n.db.alloc.Allocate(len(b))
		if err != nil {
			return allocErr(err)
		}
		r.PutBytes(so, b)
		r.PutOffset(p, so)
		r.PutUint32(p.Add(8), uint32(len(b)))
	default:
		return ErrInvalidArgument
	}

	n.setNodeType(v.Type)
	return nil
}

// decodeValue reads the node's payload back into a Value according to
// its stored type.
func (n node) decodeValue() (Value, error) {
	r := n.r()
	p := n.payload()

	switch t := n.nodeType(); t {
	case TypeInt:
		return Value{Type: TypeInt, Int: int32(r.Uint32(p))}, nil
	case TypeFloat:
		return Value{Type: TypeFloat, Float: math.Float32frombits(r.Uint32(p))}, nil
	case TypeBool:
		return Value{Type: TypeBool, Bool: r.Byte(p) != 0}, nil
	case TypeString:
		so := r.Offset(p)
		sl := int(r.Uint32(p.Add(8)))
		return Value{Type: TypeString, Str: string(r.Slice(so, sl))}, nil
	default:
		return Value{}, ErrInvalidArgument
	}
}

// freeValue releases a string leaf's backing bytes. It is a no-op for
// every other type, whose payload lives entirely inside the node record.
func (n node) freeValue() {
	if n.nodeType() != TypeString {
		return
	}
	so := n.r().Offset(n.payload())
	if so != offset.Null {
		n.db.alloc.Free(so)
	}
}
