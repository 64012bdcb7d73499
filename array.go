package constinit

import (
	"github.com/wippyai/constinit/errors"
	"github.com/wippyai/constinit/ir"
)

// ArrayBuilder accumulates a homogeneous sequence of constants and finishes
// into a constant array. Obtain one from Builder.BeginArray or the BeginArray
// method of an enclosing aggregate.
type ArrayBuilder struct {
	aggregate
	elemTy ir.Type
}

// Size returns the number of elements added so far.
func (b *ArrayBuilder) Size() int {
	if b.finished {
		panic(errors.Finished(errors.PhaseBuild, "query size"))
	}
	if b.frozen {
		panic(errors.Frozen(errors.PhaseBuild, "query size"))
	}
	return len(b.builder.buffer) - b.begin
}

// Empty reports whether no elements have been added.
func (b *ArrayBuilder) Empty() bool {
	return b.Size() == 0
}

// FinishAndAddTo finalizes this array into one composite constant and appends
// it to parent, which must be the builder this one was begun on.
func (b *ArrayBuilder) FinishAndAddTo(parent Aggregate) {
	b.finishInto(b.finishImpl, parent)
}

// FinishAndCreateGlobal finalizes a root array builder and creates a global
// with the composite as its initializer.
func (b *ArrayBuilder) FinishAndCreateGlobal(name string, opts ir.GlobalOptions) (*ir.Global, error) {
	return b.finishGlobal(b.finishImpl, name, opts)
}

// FinishAndSetAsInitializer finalizes a root array builder and sets the
// composite as the initializer of an existing global.
func (b *ArrayBuilder) FinishAndSetAsInitializer(gv *ir.Global) error {
	return b.finishInitializer(b.finishImpl, gv)
}

func (b *ArrayBuilder) finishImpl() ir.Constant {
	return b.finishArray(b.elemTy)
}
