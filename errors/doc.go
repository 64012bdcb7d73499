// Package errors provides structured error types for the constinit library.
//
// Errors are categorized by Phase (where in initializer construction the error
// occurred) and Kind (error category). The Error type includes rich context:
// the builder path, the types involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFinish, errors.KindTypeMismatch).
//		Path("widget_list", "3").
//		Have("i8").
//		Want("i32").
//		Detail("array element type mismatch").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Frozen(errors.PhaseBuild, "add")
//	err := errors.TypeMismatch(errors.PhaseFinish, path, "i8", "i32")
//
// All errors implement the standard error interface and support errors.Is/As.
//
// Most construction-time failures in this library are contract violations in
// the calling code generator, not recoverable runtime conditions; the builder
// package panics with a *Error for those. Boundary packages (emit, the ir
// symbol table) return them as ordinary errors instead.
package errors
