package ir

import (
	"fmt"
	"strings"
)

// Layout describes the target data layout used for size, alignment, and
// offset computation.
type Layout struct {
	// PointerBits is the width of a pointer. Must be 8, 16, 32, or 64.
	PointerBits int
}

// DefaultLayout returns a layout with 64-bit pointers.
func DefaultLayout() *Layout {
	return &Layout{PointerBits: 64}
}

// PointerSize returns the pointer size in bytes.
func (l *Layout) PointerSize() int64 {
	return int64(l.PointerBits) / 8
}

// PointerAlign returns the pointer alignment in bytes.
func (l *Layout) PointerAlign() int64 {
	return l.PointerSize()
}

// Stride returns the distance in bytes between consecutive elements of type t
// in an array: the size rounded up to the alignment.
func (l *Layout) Stride(t Type) int64 {
	return AlignTo(t.Size(l), t.Align(l))
}

// AlignTo rounds offset up to the next multiple of align.
// align must be a power of two.
func AlignTo(offset, align int64) int64 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Type is a value type with a layout-dependent size and alignment.
type Type interface {
	// Size returns the number of bytes a value of this type occupies,
	// excluding trailing padding added by an enclosing array stride.
	Size(l *Layout) int64
	// Align returns the natural alignment in bytes.
	Align(l *Layout) int64
	String() string
}

// IntType is a fixed-width integer type.
type IntType struct {
	Bits int // 8, 16, 32, or 64
}

// Predefined integer types.
var (
	I8  = &IntType{Bits: 8}
	I16 = &IntType{Bits: 16}
	I32 = &IntType{Bits: 32}
	I64 = &IntType{Bits: 64}
)

// IntBits returns the predefined integer type of the given width.
func IntBits(bits int) *IntType {
	switch bits {
	case 8:
		return I8
	case 16:
		return I16
	case 32:
		return I32
	case 64:
		return I64
	}
	return &IntType{Bits: bits}
}

func (t *IntType) Size(*Layout) int64 {
	return int64(t.Bits+7) / 8
}

func (t *IntType) Align(l *Layout) int64 {
	return t.Size(l)
}

func (t *IntType) String() string {
	return fmt.Sprintf("i%d", t.Bits)
}

// PointerType is a typed pointer in a given address space.
type PointerType struct {
	Elem      Type
	AddrSpace int
}

// PointerTo returns a pointer type to elem in address space 0.
func PointerTo(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

func (t *PointerType) Size(l *Layout) int64 {
	return l.PointerSize()
}

func (t *PointerType) Align(l *Layout) int64 {
	return l.PointerAlign()
}

func (t *PointerType) String() string {
	if t.AddrSpace != 0 {
		return fmt.Sprintf("%s addrspace(%d)*", t.Elem, t.AddrSpace)
	}
	return t.Elem.String() + "*"
}

// ArrayType is a fixed-length homogeneous array.
type ArrayType struct {
	Elem Type
	Len  int
}

// NewArrayType returns an array type of n elements of elem.
func NewArrayType(elem Type, n int) *ArrayType {
	return &ArrayType{Elem: elem, Len: n}
}

func (t *ArrayType) Size(l *Layout) int64 {
	return l.Stride(t.Elem) * int64(t.Len)
}

func (t *ArrayType) Align(l *Layout) int64 {
	return t.Elem.Align(l)
}

func (t *ArrayType) String() string {
	return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
}

// StructType is an ordered sequence of field types, optionally packed.
// A named struct type prints its name; an anonymous one prints its fields.
type StructType struct {
	Name   string
	Fields []Type
	Packed bool
}

// NewStructType returns a struct type with the given name and fields.
func NewStructType(name string, fields []Type, packed bool) *StructType {
	return &StructType{Name: name, Fields: fields, Packed: packed}
}

func (t *StructType) Size(l *Layout) int64 {
	var off int64
	for _, f := range t.Fields {
		if !t.Packed {
			off = AlignTo(off, f.Align(l))
		}
		off += f.Size(l)
	}
	return AlignTo(off, t.Align(l))
}

func (t *StructType) Align(l *Layout) int64 {
	if t.Packed {
		return 1
	}
	align := int64(1)
	for _, f := range t.Fields {
		if a := f.Align(l); a > align {
			align = a
		}
	}
	return align
}

// FieldOffset returns the byte offset of field i from the struct start.
func (t *StructType) FieldOffset(l *Layout, i int) int64 {
	var off int64
	for j := 0; j <= i; j++ {
		f := t.Fields[j]
		if !t.Packed {
			off = AlignTo(off, f.Align(l))
		}
		if j == i {
			return off
		}
		off += f.Size(l)
	}
	return off
}

func (t *StructType) String() string {
	if t.Name != "" {
		return "%" + t.Name
	}
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	if t.Packed {
		return "<{" + strings.Join(parts, ", ") + "}>"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// TypesEqual reports whether two types are structurally identical.
func TypesEqual(a, b Type) bool {
	switch at := a.(type) {
	case *IntType:
		bt, ok := b.(*IntType)
		return ok && at.Bits == bt.Bits
	case *PointerType:
		bt, ok := b.(*PointerType)
		return ok && at.AddrSpace == bt.AddrSpace && TypesEqual(at.Elem, bt.Elem)
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		return ok && at.Len == bt.Len && TypesEqual(at.Elem, bt.Elem)
	case *StructType:
		bt, ok := b.(*StructType)
		if !ok || at.Packed != bt.Packed || len(at.Fields) != len(bt.Fields) {
			return false
		}
		for i := range at.Fields {
			if !TypesEqual(at.Fields[i], bt.Fields[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// ElemTypeAt walks an element-pointer index path through t and returns the
// type reached. The first index selects among consecutive values of t itself
// and does not change the type; subsequent indices step into arrays and
// structs.
func ElemTypeAt(t Type, indices []uint64) (Type, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("empty index path")
	}
	cur := t
	for _, idx := range indices[1:] {
		switch ct := cur.(type) {
		case *ArrayType:
			if idx >= uint64(ct.Len) {
				return nil, fmt.Errorf("index %d out of range for %s", idx, ct)
			}
			cur = ct.Elem
		case *StructType:
			if idx >= uint64(len(ct.Fields)) {
				return nil, fmt.Errorf("index %d out of range for %s", idx, ct)
			}
			cur = ct.Fields[idx]
		default:
			return nil, fmt.Errorf("cannot index into %s", cur)
		}
	}
	return cur, nil
}

// OffsetOf returns the byte offset reached by walking an element-pointer
// index path through t. The first index scales by the stride of t.
func (l *Layout) OffsetOf(t Type, indices []uint64) (int64, error) {
	if len(indices) == 0 {
		return 0, fmt.Errorf("empty index path")
	}
	off := int64(indices[0]) * l.Stride(t)
	cur := t
	for _, idx := range indices[1:] {
		switch ct := cur.(type) {
		case *ArrayType:
			if idx >= uint64(ct.Len) {
				return 0, fmt.Errorf("index %d out of range for %s", idx, ct)
			}
			off += int64(idx) * l.Stride(ct.Elem)
			cur = ct.Elem
		case *StructType:
			if idx >= uint64(len(ct.Fields)) {
				return 0, fmt.Errorf("index %d out of range for %s", idx, ct)
			}
			off += ct.FieldOffset(l, int(idx))
			cur = ct.Fields[idx]
		default:
			return 0, fmt.Errorf("cannot index into %s", cur)
		}
	}
	return off, nil
}
