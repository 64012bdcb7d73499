package ir

import (
	"github.com/wippyai/constinit/errors"
)

// Linkage categorizes how a global participates in linking.
type Linkage byte

const (
	LinkInternal Linkage = iota
	LinkPrivate
	LinkExternal
)

func (l Linkage) String() string {
	switch l {
	case LinkInternal:
		return "internal"
	case LinkPrivate:
		return "private"
	case LinkExternal:
		return "external"
	}
	return "unknown"
}

// Global is a global variable. Using a Global as a Constant means taking its
// address, typed as a pointer to its value type.
type Global struct {
	name      string
	valueType Type
	init      Constant
	align     int64
	constant  bool
	linkage   Linkage
	addrSpace int
}

// GlobalOptions configures a new global.
type GlobalOptions struct {
	Align     int64
	Constant  bool
	Linkage   Linkage
	AddrSpace int
}

func (g *Global) Type() Type {
	return &PointerType{Elem: g.valueType, AddrSpace: g.addrSpace}
}

func (g *Global) String() string {
	return "@" + g.name
}

// Name returns the global's name.
func (g *Global) Name() string {
	return g.name
}

// ValueType returns the type of the global's value (the pointee type).
func (g *Global) ValueType() Type {
	return g.valueType
}

// Init returns the initializer, or nil for a declaration.
func (g *Global) Init() Constant {
	return g.init
}

// IsDeclaration reports whether the global has no initializer.
func (g *Global) IsDeclaration() bool {
	return g.init == nil
}

// Alignment returns the required alignment in bytes.
func (g *Global) Alignment() int64 {
	return g.align
}

// IsConstant reports whether the global's memory is read-only.
func (g *Global) IsConstant() bool {
	return g.constant
}

// Linkage returns the linkage category.
func (g *Global) Linkage() Linkage {
	return g.linkage
}

// AddrSpace returns the address space number.
func (g *Global) AddrSpace() int {
	return g.addrSpace
}

// SetInit attaches an initializer to a declaration. The initializer's type
// must match the declared value type, and an initializer may be set at most
// once.
func (g *Global) SetInit(c Constant) error {
	if c == nil {
		return errors.NilValue(errors.PhaseResolve, "SetInit")
	}
	if g.init != nil {
		return errors.New(errors.PhaseResolve, errors.KindDuplicate).
			Path(g.name).
			Detail("initializer already set").Build()
	}
	if !TypesEqual(c.Type(), g.valueType) {
		return errors.TypeMismatch(errors.PhaseResolve, []string{g.name},
			c.Type().String(), g.valueType.String())
	}
	g.init = c
	return nil
}
