package emit

import (
	"encoding/binary"

	"github.com/wippyai/constinit/errors"
	"github.com/wippyai/constinit/ir"
)

// Image is the rendered form of one global's initializer.
type Image struct {
	Bytes  []byte
	Relocs []Reloc
}

// Reloc records an address-bearing slot in the image.
//
// An absolute record means the slot holds address(Target) + Addend. A
// relative record means it holds address(Target) + Addend minus the address
// of the slot itself.
type Reloc struct {
	Target   *ir.Global
	Offset   int64 // slot position in Bytes
	Width    int64 // slot width in bytes
	Addend   int64
	Relative bool
}

// Encode renders the initializer of g against the given layout. A nil layout
// selects the default 64-bit layout.
func Encode(g *ir.Global, layout *ir.Layout) (*Image, error) {
	if layout == nil {
		layout = ir.DefaultLayout()
	}
	init := g.Init()
	if init == nil {
		return nil, errors.New(errors.PhaseEmit, errors.KindNilValue).
			Path(g.Name()).
			Detail("global is a declaration, nothing to render").Build()
	}
	e := &encoder{layout: layout, self: g}
	if err := e.value(init); err != nil {
		return nil, err
	}
	return &Image{Bytes: e.buf, Relocs: e.relocs}, nil
}

type encoder struct {
	layout *ir.Layout
	self   *ir.Global
	buf    []byte
	relocs []Reloc
}

func (e *encoder) pad(to int64) {
	for int64(len(e.buf)) < to {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) putUint(v uint64, width int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:width]...)
}

// value renders one constant at the current position. The caller has already
// aligned the position.
func (e *encoder) value(c ir.Constant) error {
	switch v := c.(type) {
	case *ir.Int:
		e.putUint(v.Value, v.Ty.Size(e.layout))
		return nil

	case *ir.Null:
		e.putUint(0, e.layout.PointerSize())
		return nil

	case *ir.Array:
		start := int64(len(e.buf))
		stride := e.layout.Stride(v.Ty.Elem)
		for i, elem := range v.Elems {
			e.pad(start + int64(i)*stride)
			if err := e.value(elem); err != nil {
				return err
			}
		}
		e.pad(start + v.Ty.Size(e.layout))
		return nil

	case *ir.Struct:
		start := int64(len(e.buf))
		for i, f := range v.Fields {
			e.pad(start + v.Ty.FieldOffset(e.layout, i))
			if err := e.value(f); err != nil {
				return err
			}
		}
		e.pad(start + v.Ty.Size(e.layout))
		return nil

	case *ir.BitCast:
		if _, ok := addressOf(v); ok {
			return e.address(v)
		}
		return e.value(v.Val)

	case *ir.Global, *ir.ElemPtr, *ir.DeferredPointer:
		return e.address(c)

	case *ir.Trunc, *ir.Sub, *ir.Add, *ir.PtrToInt:
		width := c.Type().Size(e.layout)
		val, rel, err := e.foldInt(c, int64(len(e.buf)))
		if err != nil {
			return err
		}
		if rel != nil {
			rel.Offset = int64(len(e.buf))
			rel.Width = width
			rel.Addend += val
			e.relocs = append(e.relocs, *rel)
			e.putUint(0, width)
			return nil
		}
		e.putUint(uint64(val), width)
		return nil
	}

	return errors.New(errors.PhaseEmit, errors.KindTypeMismatch).
		Detail("cannot render constant %s", c).Build()
}

// address renders a pointer-sized slot holding the address of a global (plus
// an interior offset) as zeros with an absolute relocation.
func (e *encoder) address(c ir.Constant) error {
	gv, addend, err := e.resolveAddress(c)
	if err != nil {
		return err
	}
	e.relocs = append(e.relocs, Reloc{
		Target: gv,
		Offset: int64(len(e.buf)),
		Width:  e.layout.PointerSize(),
		Addend: addend,
	})
	e.putUint(0, e.layout.PointerSize())
	return nil
}

// resolveAddress reduces an address-valued constant to a global and a byte
// addend into it.
func (e *encoder) resolveAddress(c ir.Constant) (*ir.Global, int64, error) {
	switch v := c.(type) {
	case *ir.Global:
		return v, 0, nil
	case *ir.BitCast:
		return e.resolveAddress(v.Val)
	case *ir.DeferredPointer:
		r, ok := v.Resolved()
		if !ok {
			return nil, 0, errors.UnresolvedRef(errors.PhaseEmit,
				"deferred pointer was never bound to a global")
		}
		return e.resolveAddress(r)
	case *ir.ElemPtr:
		gv, base, err := e.resolveAddress(v.Base)
		if err != nil {
			return nil, 0, err
		}
		off, err := e.layout.OffsetOf(v.BaseType, v.Indices)
		if err != nil {
			return nil, 0, errors.New(errors.PhaseEmit, errors.KindOutOfBounds).
				Cause(err).
				Detail("malformed element pointer").Build()
		}
		return gv, base + off, nil
	}
	return nil, 0, errors.New(errors.PhaseEmit, errors.KindTypeMismatch).
		Detail("%s is not an address", c).Build()
}

// addressOf reports whether c reduces to a global address without consulting
// the layout.
func addressOf(c ir.Constant) (*ir.Global, bool) {
	return ir.BaseGlobal(c)
}

// foldInt evaluates an integer constant expression at the slot starting at
// here. It returns the folded value and, when the expression involves an
// address that cannot fold away, a relative relocation carrying the
// remainder.
//
// The supported shapes are the ones the builder produces: plain integers,
// sums with integer tags, and target-minus-here subtractions whose "here"
// side is the slot's own address. A same-global target folds to the offset
// difference; a cross-global target becomes a relative record.
func (e *encoder) foldInt(c ir.Constant, here int64) (int64, *Reloc, error) {
	switch v := c.(type) {
	case *ir.Int:
		return int64(v.Value), nil, nil

	case *ir.Trunc:
		return e.foldInt(v.Val, here)

	case *ir.Add:
		xv, xr, err := e.foldInt(v.X, here)
		if err != nil {
			return 0, nil, err
		}
		yv, yr, err := e.foldInt(v.Y, here)
		if err != nil {
			return 0, nil, err
		}
		if xr != nil && yr != nil {
			return 0, nil, errors.New(errors.PhaseEmit, errors.KindTypeMismatch).
				Detail("sum of two unresolved addresses").Build()
		}
		r := xr
		if r == nil {
			r = yr
		}
		return xv + yv, r, nil

	case *ir.Sub:
		tgtGV, tgtOff, err := e.subSide(v.X)
		if err != nil {
			return 0, nil, err
		}
		hereGV, hereOff, err := e.subSide(v.Y)
		if err != nil {
			return 0, nil, err
		}
		if hereGV != e.self || hereOff != here {
			return 0, nil, errors.New(errors.PhaseEmit, errors.KindBadTarget).
				Detail("relative offset does not subtract its own slot address").Build()
		}
		if tgtGV == e.self {
			return tgtOff - hereOff, nil, nil
		}
		return 0, &Reloc{Target: tgtGV, Addend: tgtOff, Relative: true}, nil
	}

	return 0, nil, errors.New(errors.PhaseEmit, errors.KindTypeMismatch).
		Detail("cannot fold %s", c).Build()
}

// subSide resolves one side of a target-minus-here subtraction to a global
// and offset.
func (e *encoder) subSide(c ir.Constant) (*ir.Global, int64, error) {
	p, ok := c.(*ir.PtrToInt)
	if !ok {
		return nil, 0, errors.New(errors.PhaseEmit, errors.KindTypeMismatch).
			Detail("subtraction operand %s is not a pointer conversion", c).Build()
	}
	return e.resolveAddress(p.Val)
}
