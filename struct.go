package constinit

import (
	"github.com/wippyai/constinit/ir"
)

// StructBuilder accumulates an ordered sequence of constants and finishes
// into a constant struct, either validated against a pre-supplied struct type
// or with a type synthesized from the observed values. Obtain one from
// Builder.BeginStruct or the BeginStruct method of an enclosing aggregate.
type StructBuilder struct {
	aggregate
	structTy *ir.StructType
}

// FinishAndAddTo finalizes this struct into one composite constant and
// appends it to parent, which must be the builder this one was begun on.
func (b *StructBuilder) FinishAndAddTo(parent Aggregate) {
	b.finishInto(b.finishImpl, parent)
}

// FinishAndCreateGlobal finalizes a root struct builder and creates a global
// with the composite as its initializer.
func (b *StructBuilder) FinishAndCreateGlobal(name string, opts ir.GlobalOptions) (*ir.Global, error) {
	return b.finishGlobal(b.finishImpl, name, opts)
}

// FinishAndSetAsInitializer finalizes a root struct builder and sets the
// composite as the initializer of an existing global.
func (b *StructBuilder) FinishAndSetAsInitializer(gv *ir.Global) error {
	return b.finishInitializer(b.finishImpl, gv)
}

func (b *StructBuilder) finishImpl() ir.Constant {
	return b.finishStruct(b.structTy)
}
