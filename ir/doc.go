// Package ir provides the typed-constant model underneath the constinit
// builders: types with a target data layout, constant values and constant
// expressions, and global variables collected in a module-level symbol table.
//
// The model is deliberately small. It covers exactly what assembling constant
// initializers needs: sized integers, pointers, arrays and structs, the
// constant expressions produced by address and relative-offset computation
// (element pointers, pointer-to-integer casts, subtraction, truncation), and
// globals with alignment, linkage, and address space.
//
// # Types and layout
//
// Types compute their own size and alignment against a Layout:
//
//	layout := ir.DefaultLayout() // 64-bit pointers
//	st := ir.NewStructType("widget", []ir.Type{ir.I32, ir.PointerTo(ir.I8)}, false)
//	st.Size(layout)  // 16: 4 bytes, 4 padding, 8 bytes
//	st.Align(layout) // 8
//
// # Deferred pointers
//
// DeferredPointer is the stand-in used for self-references: an address that
// will point into a global that does not exist yet. It is created unbound,
// carries only its pointee type, and is bound exactly once when the real
// global appears. Reading the resolved address before binding reports failure
// rather than producing a bogus value.
//
// # Globals
//
// A Global is itself a Constant: using it as a value means taking its address,
// typed as a pointer to its value type. Globals live in a Module, which
// rejects duplicate names.
package ir
