// Package constinit provides a builder for complex constant initializers of
// global data, of the sort language runtimes emit for vtables, metadata
// descriptors, and dispatch tables.
//
// # Architecture Overview
//
// The library is organized into a few packages with distinct responsibilities:
//
//	constinit/       Root package with the initializer builders
//	├── ir/          Typed-constant model: types, layout, constants, globals
//	├── emit/        Flat byte rendering with generic relocation records
//	├── errors/      Structured error types
//	└── cmd/dump     Demo CLI assembling and rendering a sample table
//
// # Quick Start
//
// Build a struct initializer and create a global holding it:
//
//	mod := ir.NewModule()
//	builder := constinit.New(mod, nil)
//	defer builder.Finalize()
//
//	table := builder.BeginStruct(nil)
//	table.AddInt(ir.I32, uint64(len(widgets)))
//	arr := table.BeginArray(nil)
//	for _, w := range widgets {
//	    desc := arr.BeginStruct(nil)
//	    desc.AddInt(ir.I32, w.Power)
//	    desc.Add(w.NameAddr)
//	    desc.FinishAndAddTo(arr)
//	}
//	arr.FinishAndAddTo(table)
//	global, err := table.FinishAndCreateGlobal("WIDGET_LIST", ir.GlobalOptions{
//	    Align:    8,
//	    Constant: true,
//	})
//
// # Construction discipline
//
// All builders share one append-only buffer owned by the Builder. At most one
// aggregate builder is unfrozen at each nesting depth: beginning a child
// freezes its parent until the child finishes or is abandoned. Violations of
// this discipline, and every other misuse (adding after finish, filling a
// placeholder twice, finishing with unfilled placeholders, tearing down a
// context with unclaimed values), are contract violations on the calling code
// generator and panic with a structured *errors.Error.
//
// # Placeholders and self-references
//
// AddPlaceholder reserves a slot whose value is only known later, typically a
// count emitted ahead of the data it counts. AddrOfCurrentPosition produces
// the eventual address of the next slot before the enclosing global exists;
// the returned ir.DeferredPointer is bound when FinishAndCreateGlobal or
// FinishAndSetAsInitializer runs. AddRelativeOffset encodes pointer-like
// fields as compact target-minus-here deltas, optionally tagged in the low
// bits.
package constinit
