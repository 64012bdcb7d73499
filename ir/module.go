package ir

import (
	"github.com/wippyai/constinit/errors"
)

// Module is the symbol table for globals in one linkage unit.
type Module struct {
	globals []*Global
	byName  map[string]*Global
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{
		byName: make(map[string]*Global),
	}
}

// NewGlobal creates a defined global with the given initializer and records
// it in the symbol table. The name must be unused.
func (m *Module) NewGlobal(name string, init Constant, opts GlobalOptions) (*Global, error) {
	if init == nil {
		return nil, errors.NilValue(errors.PhaseResolve, "NewGlobal")
	}
	g, err := m.add(name, init.Type(), opts)
	if err != nil {
		return nil, err
	}
	g.init = init
	return g, nil
}

// Declare creates a declaration: a global with a known value type but no
// initializer. Declarations cannot be relative-offset targets.
func (m *Module) Declare(name string, valueType Type, opts GlobalOptions) (*Global, error) {
	return m.add(name, valueType, opts)
}

func (m *Module) add(name string, valueType Type, opts GlobalOptions) (*Global, error) {
	if _, exists := m.byName[name]; exists {
		return nil, errors.Duplicate(errors.PhaseResolve, "global", name)
	}
	g := &Global{
		name:      name,
		valueType: valueType,
		align:     opts.Align,
		constant:  opts.Constant,
		linkage:   opts.Linkage,
		addrSpace: opts.AddrSpace,
	}
	m.globals = append(m.globals, g)
	m.byName[name] = g
	return g, nil
}

// Global looks up a global by name.
func (m *Module) Global(name string) (*Global, bool) {
	g, ok := m.byName[name]
	return g, ok
}

// Globals returns all globals in creation order.
func (m *Module) Globals() []*Global {
	return m.globals
}

// Owns reports whether g belongs to this module.
func (m *Module) Owns(g *Global) bool {
	return m.byName[g.name] == g
}
