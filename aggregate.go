package constinit

import (
	"strconv"

	"github.com/wippyai/constinit/errors"
	"github.com/wippyai/constinit/ir"
)

// aggregate is the shared base of ArrayBuilder and StructBuilder. It covers a
// half-open slice [begin, len(buffer)) of the context's shared buffer.
//
// At most one builder may be unfrozen at each nesting depth: beginning a
// child freezes this builder until the child finishes or is abandoned. The
// frozen flag is a structural exclusivity check within a single call
// sequence, not a lock.
type aggregate struct {
	builder *Builder
	parent  *aggregate
	begin   int

	// Offset memoization for NextOffsetFromGlobal. cachedOffsetEnd is an
	// absolute buffer position; zero means nothing cached yet. The buffer is
	// append-only below any cached position (fills only turn nil slots into
	// values, and the cache never spans a nil slot), so cached entries stay
	// valid until the tail is truncated back past them.
	cachedOffsetEnd        int
	cachedOffsetFromGlobal int64

	finished bool
	frozen   bool
}

// Aggregate is the interface shared by ArrayBuilder and StructBuilder,
// allowing a child builder to finish into either kind of parent.
type Aggregate interface {
	base() *aggregate
}

func (a *aggregate) base() *aggregate {
	return a
}

func (a *aggregate) init(b *Builder, parent *aggregate) {
	if parent != nil {
		if parent.frozen {
			panic(errors.Frozen(errors.PhaseBuild, "begin another child builder"))
		}
		parent.frozen = true
	} else {
		if b.frozen {
			panic(errors.Frozen(errors.PhaseBuild, "begin another root builder"))
		}
		b.frozen = true
	}
	a.builder = b
	a.parent = parent
	a.begin = len(b.buffer)
}

// markFinished closes the slice and thaws whoever was frozen for it.
func (a *aggregate) markFinished() {
	if a.frozen {
		panic(errors.Frozen(errors.PhaseFinish, "finish"))
	}
	if a.finished {
		panic(errors.Finished(errors.PhaseFinish, "finish"))
	}
	a.finished = true
	if a.parent != nil {
		a.parent.frozen = false
	} else {
		a.builder.frozen = false
	}
}

// Abandon discards this builder and truncates the shared buffer back to its
// starting position. Self-references recorded under the discarded slice
// become dangling; resolving them later is an error.
func (a *aggregate) Abandon() {
	a.markFinished()
	for i := range a.builder.selfRefs {
		if a.builder.selfRefs[i].pos >= a.begin {
			a.builder.selfRefs[i].dangling = true
		}
	}
	a.builder.buffer = a.builder.buffer[:a.begin]
}

// Add appends a value to this builder's slice.
func (a *aggregate) Add(c ir.Constant) {
	if c == nil {
		panic(errors.NilValue(errors.PhaseBuild, "Add"))
	}
	if a.finished {
		panic(errors.Finished(errors.PhaseBuild, "add values"))
	}
	if a.frozen {
		panic(errors.Frozen(errors.PhaseBuild, "add values"))
	}
	a.builder.buffer = append(a.builder.buffer, c)
}

// AddInt appends an unsigned integer constant of the given type.
func (a *aggregate) AddInt(ty *ir.IntType, v uint64) {
	a.Add(ir.NewInt(ty, v))
}

// AddSignedInt appends a signed integer constant of the given type.
func (a *aggregate) AddSignedInt(ty *ir.IntType, v int64) {
	a.Add(ir.NewSignedInt(ty, v))
}

// AddSize appends an integer of pointer width.
func (a *aggregate) AddSize(v int64) {
	a.Add(ir.NewInt(ir.IntBits(a.builder.layout.PointerBits), uint64(v)))
}

// AddNull appends a null pointer of the given type.
func (a *aggregate) AddNull(ty *ir.PointerType) {
	a.Add(ir.NewNull(ty))
}

// AddBitCast appends a value reinterpreted at another type.
func (a *aggregate) AddBitCast(c ir.Constant, to ir.Type) {
	a.Add(ir.NewBitCast(c, to))
}

// AddAll appends a batch of values.
func (a *aggregate) AddAll(cs ...ir.Constant) {
	if a.finished {
		panic(errors.Finished(errors.PhaseBuild, "add values"))
	}
	if a.frozen {
		panic(errors.Frozen(errors.PhaseBuild, "add values"))
	}
	for _, c := range cs {
		if c == nil {
			panic(errors.NilValue(errors.PhaseBuild, "AddAll"))
		}
		a.builder.buffer = append(a.builder.buffer, c)
	}
}

// Placeholder is the opaque position of a reserved slot. It stays valid until
// the slot is filled or the whole context is torn down.
type Placeholder struct {
	index int
}

// AddPlaceholder reserves the next slot as empty and returns its position.
//
// This is useful for emitting structures that carry a summary field, usually
// a count, ahead of the data it summarizes: emit the placeholder first, build
// the rest eagerly, then fill it in.
func (a *aggregate) AddPlaceholder() Placeholder {
	if a.finished {
		panic(errors.Finished(errors.PhaseBuild, "add a placeholder"))
	}
	if a.frozen {
		panic(errors.Frozen(errors.PhaseBuild, "add a placeholder"))
	}
	a.builder.buffer = append(a.builder.buffer, nil)
	return Placeholder{index: len(a.builder.buffer) - 1}
}

// FillPlaceholder writes a previously reserved slot, exactly once.
func (a *aggregate) FillPlaceholder(p Placeholder, c ir.Constant) {
	if c == nil {
		panic(errors.NilValue(errors.PhaseBuild, "FillPlaceholder"))
	}
	if a.finished {
		panic(errors.Finished(errors.PhaseBuild, "fill a placeholder"))
	}
	if a.frozen {
		panic(errors.Frozen(errors.PhaseBuild, "fill a placeholder"))
	}
	if a.builder.buffer[p.index] != nil {
		panic(errors.PlaceholderFilled(p.index))
	}
	a.builder.buffer[p.index] = c
}

// FillPlaceholderInt fills a reserved slot with an unsigned integer constant.
func (a *aggregate) FillPlaceholderInt(p Placeholder, ty *ir.IntType, v uint64) {
	a.FillPlaceholder(p, ir.NewInt(ty, v))
}

// NextOffsetFromGlobal returns the byte offset, from the start of the
// eventual global, of the position immediately after the last element,
// including natural alignment padding between elements.
func (a *aggregate) NextOffsetFromGlobal() int64 {
	if a.finished {
		panic(errors.Finished(errors.PhaseBuild, "query offsets"))
	}
	if a.frozen {
		panic(errors.Frozen(errors.PhaseBuild, "query offsets"))
	}
	return a.offsetFromGlobalTo(len(a.builder.buffer))
}

func (a *aggregate) offsetFromGlobalTo(end int) int64 {
	layout := a.builder.layout
	pos := a.cachedOffsetEnd
	offset := a.cachedOffsetFromGlobal
	if pos == 0 {
		pos = a.begin
		offset = 0
		if a.parent != nil {
			offset = a.parent.offsetFromGlobalTo(a.begin)
		}
	}
	for ; pos < end; pos++ {
		elem := a.builder.buffer[pos]
		if elem == nil {
			panic(errors.PlaceholderEmpty(errors.PhaseBuild, pos-a.begin))
		}
		ty := elem.Type()
		offset = ir.AlignTo(offset, ty.Align(layout))
		offset += ty.Size(layout)
	}
	a.cachedOffsetEnd = pos
	a.cachedOffsetFromGlobal = offset
	return offset
}

// AddrOfCurrentPosition produces an address that will eventually point at the
// next slot to be filled, typed as a pointer to ty. The enclosing global does
// not exist yet, so the address is a deferred cell registered with the
// context and bound when the global is created or assigned.
func (a *aggregate) AddrOfCurrentPosition(ty ir.Type) ir.Constant {
	if a.finished {
		panic(errors.Finished(errors.PhaseBuild, "take addresses"))
	}
	if a.frozen {
		panic(errors.Frozen(errors.PhaseBuild, "take addresses"))
	}
	ref := ir.NewDeferredPointer(ty)
	b := a.builder
	b.selfRefs = append(b.selfRefs, selfRef{
		ref:     ref,
		indices: a.gepIndicesTo(nil, len(b.buffer)),
		pos:     len(b.buffer),
	})
	return ref
}

// GEPIndicesToCurrentPosition returns the index path from the eventual global
// to the next slot to be filled. The first index is always zero.
func (a *aggregate) GEPIndicesToCurrentPosition() []uint64 {
	return a.gepIndicesTo(nil, len(a.builder.buffer))
}

func (a *aggregate) gepIndicesTo(indices []uint64, position int) []uint64 {
	if a.parent != nil {
		indices = a.parent.gepIndicesTo(indices, a.begin)
	} else {
		indices = append(indices, 0)
	}
	indices = append(indices, uint64(position-a.begin))
	return indices
}

// AddRelativeOffset appends an integer of the given width holding the static
// difference between the target address and the address of the slot the
// value occupies. The target must be defined in the same linkage unit.
func (a *aggregate) AddRelativeOffset(ty *ir.IntType, target ir.Constant) {
	a.Add(a.relativeOffsetTo(ty, target))
}

// AddTaggedRelativeOffset appends a relative offset plus a small tag added
// into its low bits. The caller must guarantee the delta's low bits are
// otherwise zero, e.g. through known alignment of the target.
func (a *aggregate) AddTaggedRelativeOffset(ty *ir.IntType, target ir.Constant, tag uint32) {
	offset := a.relativeOffsetTo(ty, target)
	if tag != 0 {
		offset = ir.NewAdd(offset, ir.NewInt(ty, uint64(tag)))
	}
	a.Add(offset)
}

// relativeOffsetTo computes target minus the address of the slot about to be
// written, as an integer of the given width.
func (a *aggregate) relativeOffsetTo(ty *ir.IntType, target ir.Constant) ir.Constant {
	layout := a.builder.layout
	if ty.Bits > layout.PointerBits {
		panic(errors.Overflow(errors.PhaseBuild,
			"relative offset type wider than a pointer"))
	}
	if gv, ok := ir.BaseGlobal(target); ok {
		if !a.builder.mod.Owns(gv) {
			panic(errors.BadTarget("relative offset target is outside this linkage unit"))
		}
		if gv.IsDeclaration() {
			panic(errors.BadTarget("relative offset target has no definition"))
		}
	} else if _, deferred := target.(*ir.DeferredPointer); !deferred {
		// An unbound deferred pointer is a reference into the aggregate
		// under construction; anything else has no addressable base.
		panic(errors.BadTarget("relative offset target is not rooted at a global"))
	}

	intptr := ir.IntBits(layout.PointerBits)
	here := a.AddrOfCurrentPosition(ty)
	var offset ir.Constant = ir.NewSub(ir.NewPtrToInt(target, intptr), ir.NewPtrToInt(here, intptr))
	if ty.Bits < layout.PointerBits {
		offset = ir.NewTrunc(offset, ty)
	}
	return offset
}

// finishArray forms the composite array constant from this builder's slice
// and releases the slice back to the buffer.
func (a *aggregate) finishArray(elemTy ir.Type) ir.Constant {
	a.markFinished()

	buf := a.builder.buffer
	slice := buf[a.begin:]
	if len(slice) == 0 && elemTy == nil {
		panic(errors.New(errors.PhaseFinish, errors.KindArityMismatch).
			Detail("cannot infer the element type of an empty array").Build())
	}
	elems := make([]ir.Constant, len(slice))
	for i, c := range slice {
		if c == nil {
			panic(errors.PlaceholderEmpty(errors.PhaseFinish, i))
		}
		elems[i] = c
	}
	if elemTy == nil {
		elemTy = elems[0].Type()
	}
	for i, c := range elems {
		if !ir.TypesEqual(c.Type(), elemTy) {
			panic(errors.TypeMismatch(errors.PhaseFinish,
				[]string{strconv.Itoa(i)}, c.Type().String(), elemTy.String()))
		}
	}
	a.builder.buffer = buf[:a.begin]
	return ir.NewArray(ir.NewArrayType(elemTy, len(elems)), elems)
}

// finishStruct forms the composite struct constant from this builder's slice,
// validating against ty when supplied and synthesizing a struct type
// otherwise, and releases the slice back to the buffer.
func (a *aggregate) finishStruct(ty *ir.StructType) ir.Constant {
	a.markFinished()

	buf := a.builder.buffer
	slice := buf[a.begin:]
	fields := make([]ir.Constant, len(slice))
	for i, c := range slice {
		if c == nil {
			panic(errors.PlaceholderEmpty(errors.PhaseFinish, i))
		}
		fields[i] = c
	}
	if ty != nil {
		if len(ty.Fields) != len(fields) {
			panic(errors.ArityMismatch(errors.PhaseFinish, len(fields), len(ty.Fields)))
		}
		for i, c := range fields {
			if !ir.TypesEqual(c.Type(), ty.Fields[i]) {
				panic(errors.TypeMismatch(errors.PhaseFinish,
					[]string{strconv.Itoa(i)}, c.Type().String(), ty.Fields[i].String()))
			}
		}
	} else {
		fieldTypes := make([]ir.Type, len(fields))
		for i, c := range fields {
			fieldTypes[i] = c.Type()
		}
		ty = ir.NewStructType("", fieldTypes, false)
	}
	a.builder.buffer = buf[:a.begin]
	return ir.NewStruct(ty, fields)
}

// finishInto finalizes this aggregate into one composite value and appends it
// to the parent, which must be exactly this builder's recorded parent.
func (a *aggregate) finishInto(value func() ir.Constant, parent Aggregate) {
	if a.parent == nil || a.parent != parent.base() {
		panic(errors.WrongParent())
	}
	parent.base().Add(value())
}

// finishGlobal finalizes a root aggregate and hands the composite off as a
// new global's initializer.
func (a *aggregate) finishGlobal(value func() ir.Constant, name string, opts ir.GlobalOptions) (*ir.Global, error) {
	if a.parent != nil {
		panic(errors.NotRoot("FinishAndCreateGlobal"))
	}
	return a.builder.createGlobal(value(), name, opts)
}

// finishInitializer finalizes a root aggregate and attaches the composite to
// an existing global.
func (a *aggregate) finishInitializer(value func() ir.Constant, gv *ir.Global) error {
	if a.parent != nil {
		panic(errors.NotRoot("FinishAndSetAsInitializer"))
	}
	return a.builder.setGlobalInitializer(gv, value())
}

// BeginArray opens a child array builder; this builder is frozen until the
// child finishes or is abandoned.
func (a *aggregate) BeginArray(elemTy ir.Type) *ArrayBuilder {
	ab := &ArrayBuilder{elemTy: elemTy}
	ab.aggregate.init(a.builder, a)
	return ab
}

// BeginStruct opens a child struct builder; this builder is frozen until the
// child finishes or is abandoned.
func (a *aggregate) BeginStruct(ty *ir.StructType) *StructBuilder {
	sb := &StructBuilder{structTy: ty}
	sb.aggregate.init(a.builder, a)
	return sb
}
