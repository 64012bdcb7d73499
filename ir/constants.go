package ir

import (
	"fmt"
	"strings"

	"github.com/wippyai/constinit/errors"
)

// Constant is a typed constant value or constant expression.
type Constant interface {
	Type() Type
	String() string
}

// Int is an integer constant. Value holds the two's-complement bit pattern.
type Int struct {
	Ty     *IntType
	Value  uint64
	Signed bool
}

// NewInt returns an unsigned integer constant of the given type.
func NewInt(ty *IntType, v uint64) *Int {
	return &Int{Ty: ty, Value: v}
}

// NewSignedInt returns a signed integer constant of the given type.
func NewSignedInt(ty *IntType, v int64) *Int {
	return &Int{Ty: ty, Value: uint64(v), Signed: true}
}

func (c *Int) Type() Type {
	return c.Ty
}

func (c *Int) String() string {
	if c.Signed {
		return fmt.Sprintf("%s %d", c.Ty, int64(c.Value))
	}
	return fmt.Sprintf("%s %d", c.Ty, c.Value)
}

// Null is a null pointer constant.
type Null struct {
	Ty *PointerType
}

// NewNull returns a null pointer of the given type.
func NewNull(ty *PointerType) *Null {
	return &Null{Ty: ty}
}

func (c *Null) Type() Type {
	return c.Ty
}

func (c *Null) String() string {
	return c.Ty.String() + " null"
}

// BitCast reinterprets a constant at another type of the same size.
type BitCast struct {
	Val Constant
	To  Type
}

// NewBitCast returns val reinterpreted at type to.
func NewBitCast(val Constant, to Type) *BitCast {
	return &BitCast{Val: val, To: to}
}

func (c *BitCast) Type() Type {
	return c.To
}

func (c *BitCast) String() string {
	return fmt.Sprintf("bitcast(%s to %s)", c.Val, c.To)
}

// ElemPtr is an element-pointer constant expression: the address reached by
// walking an index path from a base address. The base must be a pointer to
// BaseType; the first index scales by the stride of BaseType, subsequent
// indices step into arrays and structs. Always inbounds.
type ElemPtr struct {
	Base     Constant
	BaseType Type
	Indices  []uint64
}

// NewElemPtr returns an element-pointer from base through indices.
func NewElemPtr(base Constant, baseType Type, indices ...uint64) *ElemPtr {
	return &ElemPtr{Base: base, BaseType: baseType, Indices: indices}
}

func (c *ElemPtr) Type() Type {
	elem, err := ElemTypeAt(c.BaseType, c.Indices)
	if err != nil {
		panic(errors.New(errors.PhaseResolve, errors.KindOutOfBounds).
			Detail("malformed element pointer: %v", err).Build())
	}
	return PointerTo(elem)
}

func (c *ElemPtr) String() string {
	parts := make([]string, len(c.Indices))
	for i, idx := range c.Indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("elemptr(%s, %s, [%s])", c.BaseType, c.Base, strings.Join(parts, ", "))
}

// PtrToInt converts a pointer constant to an integer of pointer width or less.
type PtrToInt struct {
	Val Constant
	To  *IntType
}

// NewPtrToInt returns val converted to the integer type to.
func NewPtrToInt(val Constant, to *IntType) *PtrToInt {
	return &PtrToInt{Val: val, To: to}
}

func (c *PtrToInt) Type() Type {
	return c.To
}

func (c *PtrToInt) String() string {
	return fmt.Sprintf("ptrtoint(%s to %s)", c.Val, c.To)
}

// Sub is an integer subtraction constant expression.
type Sub struct {
	X, Y Constant
}

// NewSub returns the constant expression x - y.
func NewSub(x, y Constant) *Sub {
	return &Sub{X: x, Y: y}
}

func (c *Sub) Type() Type {
	return c.X.Type()
}

func (c *Sub) String() string {
	return fmt.Sprintf("sub(%s, %s)", c.X, c.Y)
}

// Add is an integer addition constant expression.
type Add struct {
	X, Y Constant
}

// NewAdd returns the constant expression x + y.
func NewAdd(x, y Constant) *Add {
	return &Add{X: x, Y: y}
}

func (c *Add) Type() Type {
	return c.X.Type()
}

func (c *Add) String() string {
	return fmt.Sprintf("add(%s, %s)", c.X, c.Y)
}

// Trunc truncates an integer constant to a narrower type.
type Trunc struct {
	Val Constant
	To  *IntType
}

// NewTrunc returns val truncated to the integer type to.
func NewTrunc(val Constant, to *IntType) *Trunc {
	return &Trunc{Val: val, To: to}
}

func (c *Trunc) Type() Type {
	return c.To
}

func (c *Trunc) String() string {
	return fmt.Sprintf("trunc(%s to %s)", c.Val, c.To)
}

// Array is a constant array aggregate.
type Array struct {
	Ty    *ArrayType
	Elems []Constant
}

// NewArray returns a constant array of the given type.
func NewArray(ty *ArrayType, elems []Constant) *Array {
	return &Array{Ty: ty, Elems: elems}
}

func (c *Array) Type() Type {
	return c.Ty
}

func (c *Array) String() string {
	parts := make([]string, len(c.Elems))
	for i, e := range c.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Struct is a constant struct aggregate.
type Struct struct {
	Ty     *StructType
	Fields []Constant
}

// NewStruct returns a constant struct of the given type.
func NewStruct(ty *StructType, fields []Constant) *Struct {
	return &Struct{Ty: ty, Fields: fields}
}

func (c *Struct) Type() Type {
	return c.Ty
}

func (c *Struct) String() string {
	parts := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		parts[i] = f.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// DeferredPointer is a deferred-binding address: a pointer into a global that
// does not exist yet. It is created unbound with only its pointee type, then
// bound exactly once to a real global and index path when the global is
// created. Self-references resolve through this cell instead of patching a
// stand-in object.
type DeferredPointer struct {
	elem    Type
	global  *Global
	indices []uint64
	bound   bool
}

// NewDeferredPointer returns an unbound deferred pointer to a value of type
// elem.
func NewDeferredPointer(elem Type) *DeferredPointer {
	return &DeferredPointer{elem: elem}
}

func (c *DeferredPointer) Type() Type {
	return PointerTo(c.elem)
}

// Bind binds the deferred pointer to an element of gv reached by indices.
// Binding twice is a contract violation.
func (c *DeferredPointer) Bind(gv *Global, indices []uint64) {
	if c.bound {
		panic(errors.New(errors.PhaseResolve, errors.KindDuplicate).
			Detail("deferred pointer already bound").Build())
	}
	c.global = gv
	c.indices = indices
	c.bound = true
}

// Bound reports whether the deferred pointer has been bound.
func (c *DeferredPointer) Bound() bool {
	return c.bound
}

// Resolved returns the concrete element-pointer this cell was bound to.
// It reports false before Bind.
func (c *DeferredPointer) Resolved() (Constant, bool) {
	if !c.bound {
		return nil, false
	}
	return NewElemPtr(c.global, c.global.ValueType(), c.indices...), true
}

func (c *DeferredPointer) String() string {
	if r, ok := c.Resolved(); ok {
		return r.String()
	}
	return fmt.Sprintf("deferred(%s*)", c.elem)
}

// BaseGlobal strips constant expressions from c and returns the global whose
// address the value is ultimately computed from. Bound deferred pointers are
// followed; unbound ones report false.
func BaseGlobal(c Constant) (*Global, bool) {
	for {
		switch v := c.(type) {
		case *Global:
			return v, true
		case *BitCast:
			c = v.Val
		case *ElemPtr:
			c = v.Base
		case *PtrToInt:
			c = v.Val
		case *Trunc:
			c = v.Val
		case *DeferredPointer:
			if !v.bound {
				return nil, false
			}
			c = v.global
		default:
			return nil, false
		}
	}
}
