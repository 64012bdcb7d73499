package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in initializer construction the error occurred
type Phase string

const (
	PhaseBuild   Phase = "build"   // appending values to an aggregate
	PhaseFinish  Phase = "finish"  // forming the composite constant
	PhaseResolve Phase = "resolve" // global creation and self-reference patching
	PhaseEmit    Phase = "emit"    // flat byte rendering
)

// Kind categorizes the error
type Kind string

const (
	KindFrozen            Kind = "frozen"             // builder has an active child
	KindFinished          Kind = "finished"           // builder already finished
	KindNilValue          Kind = "nil_value"          // nil constant passed to add/fill
	KindPlaceholderEmpty  Kind = "placeholder_empty"  // unfilled placeholder encountered
	KindPlaceholderFilled Kind = "placeholder_filled" // placeholder filled twice
	KindTypeMismatch      Kind = "type_mismatch"
	KindArityMismatch     Kind = "arity_mismatch"
	KindNotRoot           Kind = "not_root"     // global finish on a nested builder
	KindWrongParent       Kind = "wrong_parent" // finishAndAddTo with a stranger
	KindUnclaimed         Kind = "unclaimed"    // buffer not empty at teardown
	KindUnresolvedRef     Kind = "unresolved_ref"
	KindBadTarget         Kind = "bad_target" // relative offset to a non-definition
	KindOutOfBounds       Kind = "out_of_bounds"
	KindDuplicate         Kind = "duplicate"
	KindOverflow          Kind = "overflow"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Have   string
	Want   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Have != "" || e.Want != "" {
		b.WriteString(": ")
		if e.Have != "" && e.Want != "" {
			b.WriteString("have ")
			b.WriteString(e.Have)
			b.WriteString(", want ")
			b.WriteString(e.Want)
		} else if e.Have != "" {
			b.WriteString("have ")
			b.WriteString(e.Have)
		} else {
			b.WriteString("want ")
			b.WriteString(e.Want)
		}
	}

	if e.Detail != "" {
		if e.Have != "" || e.Want != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the builder path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Have sets the type or state that was found
func (b *Builder) Have(s string) *Builder {
	b.err.Have = s
	return b
}

// Want sets the type or state that was expected
func (b *Builder) Want(s string) *Builder {
	b.err.Want = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Frozen creates an error for an operation attempted while a child builder is active
func Frozen(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFrozen,
		Detail: fmt.Sprintf("cannot %s while a child builder is active", op),
	}
}

// Finished creates an error for an operation attempted after the builder finished
func Finished(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFinished,
		Detail: fmt.Sprintf("cannot %s after finishing builder", op),
	}
}

// NilValue creates an error for a nil constant passed where a value is required
func NilValue(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilValue,
		Detail: fmt.Sprintf("nil value passed to %s", op),
	}
}

// PlaceholderEmpty creates an error for an unfilled placeholder at position idx
func PlaceholderEmpty(phase Phase, idx int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPlaceholderEmpty,
		Detail: fmt.Sprintf("placeholder at position %d was never filled", idx),
	}
}

// PlaceholderFilled creates an error for filling an already-filled placeholder
func PlaceholderFilled(idx int) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindPlaceholderFilled,
		Detail: fmt.Sprintf("placeholder at position %d already filled", idx),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, have, want string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindTypeMismatch,
		Path:  path,
		Have:  have,
		Want:  want,
	}
}

// ArityMismatch creates an element count mismatch error
func ArityMismatch(phase Phase, have, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArityMismatch,
		Detail: fmt.Sprintf("have %d elements, want %d", have, want),
	}
}

// NotRoot creates an error for a global-level finish on a nested builder
func NotRoot(op string) *Error {
	return &Error{
		Phase:  PhaseFinish,
		Kind:   KindNotRoot,
		Detail: fmt.Sprintf("%s is only valid on a root builder", op),
	}
}

// WrongParent creates an error for finishing into a builder that is not the parent
func WrongParent() *Error {
	return &Error{
		Phase:  PhaseFinish,
		Kind:   KindWrongParent,
		Detail: "finishAndAddTo target is not this builder's parent",
	}
}

// Unclaimed creates an error for a context torn down with values still buffered
func Unclaimed(n int) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnclaimed,
		Detail: fmt.Sprintf("%d value(s) left unclaimed in buffer", n),
	}
}

// UnresolvedRef creates an error for a deferred reference read before binding
func UnresolvedRef(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolvedRef,
		Detail: detail,
	}
}

// BadTarget creates an error for a relative offset to an unsuitable target
func BadTarget(detail string) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindBadTarget,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, what string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("%s index %d out of bounds (length %d)", what, index, length),
	}
}

// Duplicate creates a duplicate name error
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q already exists", what, name),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: detail,
	}
}
