package constinit

import (
	"go.uber.org/zap"

	"github.com/wippyai/constinit/errors"
	"github.com/wippyai/constinit/ir"
)

// Builder is the top-level initializer construction context. It owns the
// shared slot buffer every aggregate builder under it writes into, and the
// registry of self-references waiting for the real global to exist.
//
// A Builder and everything nested under it belong to one logical call
// sequence; it is not safe for concurrent use.
type Builder struct {
	mod      *ir.Module
	layout   *ir.Layout
	buffer   []ir.Constant
	selfRefs []selfRef
	frozen   bool
}

// selfRef records an address handed out before the enclosing global existed:
// the deferred cell the caller embedded, and the index path to replay against
// the real global. pos is the buffer length at registration; dangling is set
// when the slice the record was created under is abandoned.
type selfRef struct {
	ref      *ir.DeferredPointer
	indices  []uint64
	pos      int
	dangling bool
}

// New creates a builder context over the given module. A nil layout selects
// the default 64-bit layout.
func New(mod *ir.Module, layout *ir.Layout) *Builder {
	if layout == nil {
		layout = ir.DefaultLayout()
	}
	return &Builder{mod: mod, layout: layout}
}

// Module returns the module globals are created in.
func (b *Builder) Module() *ir.Module {
	return b.mod
}

// Layout returns the data layout offsets are computed against.
func (b *Builder) Layout() *ir.Layout {
	return b.layout
}

// BeginArray opens a root array builder. elemTy may be nil, in which case the
// element type is inferred from the first element at finish.
func (b *Builder) BeginArray(elemTy ir.Type) *ArrayBuilder {
	ab := &ArrayBuilder{elemTy: elemTy}
	ab.aggregate.init(b, nil)
	return ab
}

// BeginStruct opens a root struct builder. ty may be nil, in which case a
// struct type is synthesized from the added values at finish.
func (b *Builder) BeginStruct(ty *ir.StructType) *StructBuilder {
	sb := &StructBuilder{structTy: ty}
	sb.aggregate.init(b, nil)
	return sb
}

// Finalize checks that every value produced under this context has been
// claimed by a parent aggregate or a global. An unclaimed value means some
// builder was never finished, a logic error in the caller.
func (b *Builder) Finalize() {
	if n := len(b.buffer); n != 0 {
		panic(errors.Unclaimed(n))
	}
}

// createGlobal allocates a new global with the given initializer and resolves
// outstanding self-references against it.
func (b *Builder) createGlobal(init ir.Constant, name string, opts ir.GlobalOptions) (*ir.Global, error) {
	gv, err := b.mod.NewGlobal(name, init, opts)
	if err != nil {
		return nil, err
	}
	b.resolveSelfReferences(gv)
	Logger().Debug("created global",
		zap.String("name", name),
		zap.String("type", init.Type().String()),
		zap.Int64("size", init.Type().Size(b.layout)))
	return gv, nil
}

// setGlobalInitializer attaches a finished initializer to an existing global
// and resolves outstanding self-references against it.
func (b *Builder) setGlobalInitializer(gv *ir.Global, init ir.Constant) error {
	if err := gv.SetInit(init); err != nil {
		return err
	}
	b.resolveSelfReferences(gv)
	Logger().Debug("set global initializer",
		zap.String("name", gv.Name()),
		zap.String("type", init.Type().String()))
	return nil
}

// resolveSelfReferences replays every recorded index path against the real
// global and binds the deferred cells. Runs exactly once per global
// assignment; the registry is cleared afterwards.
func (b *Builder) resolveSelfReferences(gv *ir.Global) {
	refs := b.selfRefs
	b.selfRefs = nil
	for _, r := range refs {
		if r.dangling {
			panic(errors.New(errors.PhaseResolve, errors.KindUnresolvedRef).
				Path(gv.Name()).
				Detail("self-reference recorded in an abandoned builder").Build())
		}
		if _, err := ir.ElemTypeAt(gv.ValueType(), r.indices); err != nil {
			panic(errors.New(errors.PhaseResolve, errors.KindOutOfBounds).
				Path(gv.Name()).
				Cause(err).
				Detail("self-reference path does not reach into the final initializer").Build())
		}
		r.ref.Bind(gv, r.indices)
	}
	if len(refs) > 0 {
		Logger().Debug("resolved self-references",
			zap.String("name", gv.Name()),
			zap.Int("count", len(refs)))
	}
}
