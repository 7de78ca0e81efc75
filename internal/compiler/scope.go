package compiler

import "github.com/cedar-lang/cedar/internal/intern"

// funcScope tracks the binding environment of one lambda being compiled
// (§4.7 "scope analysis assigns each binding one of: local closure slot,
// captured upvalue, or global"). Locals and captured upvalues share one
// flat slot space — the fiber's per-frame Locals array (internal/rt's
// CallFrame.Locals) — because MAKE_CLOSURE's "per-call upvalue slab"
// and a frame's own parameter slots are both addressed by LOAD_LOCAL/
// SET_LOCAL alike; only the compiler needs to know which slots are which.
type funcScope struct {
	parent *funcScope

	locals    []localBinding
	upvalues  []upvalueDesc
	nextSlot  int
	maxSlot   int
	argCount  int
	varargs   bool
}

type localBinding struct {
	name intern.ID
	slot int
}

// upvalueDesc records, for slot i of this function's upvalue region,
// where to find the captured value in the *enclosing* function: either
// one of its locals (fromParentLocal=true, Index is a parent slot) or one
// of its own already-captured upvalues (fromParentLocal=false, Index is a
// parent upvalue index) — the usual one-level indirection chain used by
// Lua/Crafting-Interpreters-style upvalue resolution.
type upvalueDesc struct {
	name            intern.ID
	fromParentLocal bool
	index           int
	slot            int
}

func newFuncScope(parent *funcScope) *funcScope {
	return &funcScope{parent: parent}
}

// declareLocal allocates a new closure slot for name in this function
// scope (used for parameters and for `def` inside a function body).
func (fs *funcScope) declareLocal(name intern.ID) int {
	slot := fs.nextSlot
	fs.nextSlot++
	if fs.nextSlot > fs.maxSlot {
		fs.maxSlot = fs.nextSlot
	}
	fs.locals = append(fs.locals, localBinding{name: name, slot: slot})
	return slot
}

// resolveLocal looks for name among this scope's own locals, most
// recently declared first (shadowing).
func (fs *funcScope) resolveLocal(name intern.ID) (int, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return fs.locals[i].slot, true
		}
	}
	return 0, false
}

// resolveUpvalue finds name in an enclosing scope and threads an upvalue
// chain down to fs, returning fs's own upvalue slot for it. Upvalue slots
// are numbered starting after the local region's high-water mark so they
// never collide with this function's own locals/params.
func (fs *funcScope) resolveUpvalue(name intern.ID) (int, bool) {
	if fs.parent == nil {
		return 0, false
	}
	if idx, ok := fs.findExistingUpvalue(name); ok {
		return fs.upvalues[idx].slot, true
	}
	if slot, ok := fs.parent.resolveLocal(name); ok {
		return fs.addUpvalue(name, true, slot), true
	}
	if _, ok := fs.parent.resolveUpvalue(name); ok {
		idx, _ := fs.parent.findExistingUpvalue(name)
		return fs.addUpvalue(name, false, idx), true
	}
	return 0, false
}

func (fs *funcScope) findExistingUpvalue(name intern.ID) (int, bool) {
	for i, u := range fs.upvalues {
		if u.name == name {
			return i, true
		}
	}
	return 0, false
}

func (fs *funcScope) addUpvalue(name intern.ID, fromParentLocal bool, index int) int {
	slot := fs.nextSlot
	fs.nextSlot++
	if fs.nextSlot > fs.maxSlot {
		fs.maxSlot = fs.nextSlot
	}
	fs.upvalues = append(fs.upvalues, upvalueDesc{name: name, fromParentLocal: fromParentLocal, index: index, slot: slot})
	return slot
}
