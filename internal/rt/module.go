package rt

import "github.com/cedar-lang/cedar/internal/intern"

// binding is one entry in a module's symbol table: a value plus whether
// it was declared private via DefPrivate/SetPrivate (§3.8's public/private
// visibility rule).
type binding struct {
	value   Value
	private bool
}

// Module is a namespace: a name, a symbol->binding table, and the file it
// was loaded from (§3.8, plus the supplemented `*file*` attribute from §3
// Supplemented Features). Modules are themselves objects so they can carry
// ordinary instance attributes (e.g. `*file*`) through the same AttrMap
// every other object uses.
type Module struct {
	ObjHeader

	Name    string
	File    string
	vars    map[intern.ID]*binding
	imports []*Module
}

func NewModule(name string, reg *Registry) *Module {
	m := &Module{
		Name: name,
		vars: map[intern.ID]*binding{},
	}
	if reg != nil {
		m.Type = reg.ModuleType
	}
	return m
}

// Def binds id to val in this module as a public binding, matching plain
// `def`; DefPrivate and SetPrivate are the ways to make a binding private.
func (m *Module) Def(id intern.ID, val Value) {
	m.vars[id] = &binding{value: val}
}

// DefPrivate binds id to val as a private module variable, visible to
// Find only when Find's fromModule is this module.
func (m *Module) DefPrivate(id intern.ID, val Value) {
	m.vars[id] = &binding{value: val, private: true}
}

// SetPrivate marks an already-defined binding private.
func (m *Module) SetPrivate(id intern.ID) {
	if b, ok := m.vars[id]; ok {
		b.private = true
	}
}

// Set updates an existing binding's value in place, preserving its
// visibility. Returns false if id is not yet bound in this module.
func (m *Module) Set(id intern.ID, val Value) bool {
	b, ok := m.vars[id]
	if !ok {
		return false
	}
	b.value = val
	return true
}

// localLookup finds id directly in this module's own table, without
// consulting imports.
func (m *Module) localLookup(id intern.ID) (*binding, bool) {
	b, ok := m.vars[id]
	return b, ok
}

// Find resolves id per §3.8's privacy rule: a private binding is visible
// only to code running in the defining module itself; importers only ever
// see public bindings, whether looked up directly or transitively through
// an imported module's own imports.
func (m *Module) Find(id intern.ID, fromModule *Module) (Value, bool) {
	if b, ok := m.localLookup(id); ok {
		if !b.private || fromModule == m {
			return b.value, true
		}
		return Nil, false
	}
	for _, imp := range m.imports {
		if v, ok := imp.findPublic(id); ok {
			return v, true
		}
	}
	return Nil, false
}

// findPublic is the view an importer gets of m: private bindings and
// m's own imports are invisible (§3.8 "imports are not transitive").
func (m *Module) findPublic(id intern.ID) (Value, bool) {
	b, ok := m.vars[id]
	if !ok || b.private {
		return Nil, false
	}
	return b.value, true
}

// ImportInto makes m's public bindings visible, by name, to other (the
// operation behind a module-level `import` form).
func (m *Module) ImportInto(other *Module) {
	other.imports = append(other.imports, m)
}

// Names returns every bound identifier in this module, for introspection
// and for REPL completion-style use cases.
func (m *Module) Names() []intern.ID {
	out := make([]intern.ID, 0, len(m.vars))
	for id := range m.vars {
		out = append(out, id)
	}
	return out
}
