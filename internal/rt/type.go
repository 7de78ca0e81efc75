package rt

import (
	"sync"

	"github.com/cedar-lang/cedar/internal/intern"
)

// Type is the first-class type object of §3.3/§4.3: a name, a parent list,
// a field table keyed by symbol id, and an allocator hook. The field table
// is copy-on-write: writers build a new snapshot under the per-type lock;
// readers take the same lock only long enough to load the current
// snapshot pointer, then look up in that immutable snapshot unlocked.
type Type struct {
	ObjHeader
	name    string
	nameID  intern.ID
	mu      sync.Mutex // guards parents and the fields pointer
	parents []*Type
	fields  *fieldSnapshot
	alloc   func(reg *Registry) Heaper
}

// fieldSnapshot is an immutable view of a type's field table; writers build
// a new snapshot and swap it in, readers load the current one under the
// lock and read it without holding the lock.
type fieldSnapshot struct {
	m map[intern.ID]Value
}

func newType(name string, id intern.ID, alloc func(reg *Registry) Heaper) *Type {
	return &Type{
		name:   name,
		nameID: id,
		fields: &fieldSnapshot{m: map[intern.ID]Value{}},
		alloc:  alloc,
	}
}

func (t *Type) Name() string { return t.name }

// GetField looks up key in this type's own field table only (no parent
// walk — see Lookup for the full chain).
func (t *Type) GetField(key intern.ID) (Value, bool) {
	snap := t.loadFields()
	v, ok := snap.m[key]
	return v, ok
}

func (t *Type) loadFields() *fieldSnapshot {
	t.mu.Lock()
	snap := t.fields
	t.mu.Unlock()
	return snap
}

// SetField atomically replaces this type's field table with one that adds
// or overwrites key (§3.3 "Changing a type's fields is an atomic operation
// w.r.t. other readers").
func (t *Type) SetField(key intern.ID, val Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := make(map[intern.ID]Value, len(t.fields.m)+1)
	for k, v := range t.fields.m {
		next[k] = v
	}
	next[key] = val
	t.fields = &fieldSnapshot{m: next}
}

// AddParent appends a parent type, joining the end of the parent list used
// for breadth-first method resolution.
func (t *Type) AddParent(p *Type) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parents = append(t.parents, p)
}

func (t *Type) GetParents() []*Type {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Type, len(t.parents))
	copy(out, t.parents)
	return out
}

// Lookup resolves key through this type's fields, then its ancestors'
// fields breadth-first in parent-list order (every parent before any
// grandparent), and last the fields of parentless root types such as
// Object, once the instance-attrs step (handled by GetAttr) has missed.
func (t *Type) Lookup(key intern.ID) (Value, bool) {
	if v, ok := t.GetField(key); ok {
		return v, true
	}
	queue := t.GetParents()
	seen := map[*Type]bool{t: true}
	var roots []*Type
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if seen[p] {
			continue
		}
		seen[p] = true
		parents := p.GetParents()
		if len(parents) == 0 {
			roots = append(roots, p)
			continue
		}
		if v, ok := p.GetField(key); ok {
			return v, true
		}
		queue = append(queue, parents...)
	}
	for _, p := range roots {
		if v, ok := p.GetField(key); ok {
			return v, true
		}
	}
	return Nil, false
}

// New performs §4.3 instance construction: allocate via __alloc__, set the
// instance's type, invoke "new" if a constructor method is bound, return
// the instance.
func (t *Type) New(reg *Registry, d Dispatcher, args []Value) (Value, error) {
	inst := t.alloc(reg)
	inst.Header().Type = t
	if _, ok := t.Lookup(reg.SymNew); ok {
		if _, err := d.CallMethod(Obj(inst), reg.SymNew, args); err != nil {
			return Nil, err
		}
	}
	return Obj(inst), nil
}

// Registry is the process-wide type registry (one of the three pieces of
// global state named in §9, the other two being the intern table and the
// core module). It is built once at startup and never mutated afterward
// except through each Type's own per-type lock.
type Registry struct {
	Interner *intern.Table

	TypeType     *Type
	ObjectType   *Type
	ListType     *Type
	NilType      *Type
	NumberType   *Type
	StringType   *Type
	VectorType   *Type
	DictType     *Type
	SymbolType   *Type
	KeywordType  *Type
	LambdaType   *Type
	FiberType    *Type
	ModuleType   *Type
	ChannelType  *Type

	byName map[string]*Type

	// well-known symbol ids, interned once here so every component shares
	// the same id for these operator/method names.
	SymNew    intern.ID
	SymPlus   intern.ID
	SymMinus  intern.ID
	SymStar   intern.ID
	SymSlash  intern.ID
	SymFirst  intern.ID
	SymRest   intern.ID
	SymHash   intern.ID
	SymStr    intern.ID
	SymRepr   intern.ID
}

// NewRegistry bootstraps the type system per §4.3 and §9's init order
// (intern table must already exist; this call registers builtin types and
// is itself followed by core-module construction, done by the caller).
func NewRegistry(interner *intern.Table) *Registry {
	BindSyntheticIDs(interner)
	reg := &Registry{Interner: interner, byName: map[string]*Type{}}

	reg.SymNew = interner.Intern("new")
	reg.SymPlus = interner.Intern("+")
	reg.SymMinus = interner.Intern("-")
	reg.SymStar = interner.Intern("*")
	reg.SymSlash = interner.Intern("/")
	reg.SymFirst = interner.Intern("first")
	reg.SymRest = interner.Intern("rest")
	reg.SymHash = interner.Intern("hash")
	reg.SymStr = interner.Intern("str")
	reg.SymRepr = interner.Intern("repr")

	// Type and Object are mutually bootstrapped per §4.3.
	reg.TypeType = newType("Type", interner.Intern("Type"), func(*Registry) Heaper {
		return &Type{}
	})
	reg.TypeType.Type = reg.TypeType // Type.type = Type

	reg.ObjectType = newType("Object", interner.Intern("Object"), func(*Registry) Heaper {
		return &plainObject{}
	})
	reg.ObjectType.Type = reg.TypeType

	reg.register(&reg.ListType, "List", func(*Registry) Heaper { return &Cons{} })
	reg.register(&reg.NilType, "Nil", func(*Registry) Heaper { return nil })
	reg.register(&reg.NumberType, "Number", func(*Registry) Heaper { return &boxedNumber{} })
	reg.register(&reg.StringType, "String", func(*Registry) Heaper { return &Str{} })
	reg.register(&reg.VectorType, "Vector", func(*Registry) Heaper { return emptyVector() })
	reg.register(&reg.DictType, "Dict", func(*Registry) Heaper { return NewDict() })
	reg.register(&reg.SymbolType, "Symbol", func(*Registry) Heaper { return &Symbol{} })
	reg.register(&reg.KeywordType, "Keyword", func(*Registry) Heaper { return &Keyword{} })
	reg.register(&reg.LambdaType, "Lambda", func(*Registry) Heaper { return &Lambda{} })
	reg.register(&reg.FiberType, "Fiber", func(*Registry) Heaper { return &Fiber{} })
	reg.register(&reg.ModuleType, "Module", func(*Registry) Heaper { return NewModule("", nil) })
	reg.register(&reg.ChannelType, "Channel", func(*Registry) Heaper { return &ChannelData{} })

	return reg
}

func (reg *Registry) register(slot **Type, name string, alloc func(*Registry) Heaper) {
	t := newType(name, reg.Interner.Intern(name), alloc)
	t.Type = reg.TypeType
	t.AddParent(reg.ObjectType)
	*slot = t
	reg.byName[name] = t
}

// TypeByName looks up one of the builtin types (or a user type stored
// here by RegisterUserType) by name.
func (reg *Registry) TypeByName(name string) (*Type, bool) {
	t, ok := reg.byName[name]
	return t, ok
}

// RegisterUserType makes a user-defined type (from the `make-type`
// builtin) visible to TypeByName, e.g. for serialization round-tripping.
func (reg *Registry) RegisterUserType(t *Type) { reg.byName[t.name] = t }

// NewUserType allocates a fresh user-defined type whose instances are
// plainObject (attribute-map-only) heap objects, the shape produced by the
// `make-type` builtin.
func (reg *Registry) NewUserType(name string) *Type {
	t := newType(name, reg.Interner.Intern(name), func(*Registry) Heaper { return &plainObject{} })
	t.Type = reg.TypeType
	t.AddParent(reg.ObjectType)
	return t
}

// plainObject is the instance shape for user-defined types and for the
// distinguished Object type itself: nothing but a header and whatever
// per-instance attributes get set.
type plainObject struct{ ObjHeader }

// boxedNumber exists only so Number has a concrete, allocatable instance
// shape for __alloc__; ordinary arithmetic never allocates one since
// numbers are immediate values (§3.1).
type boxedNumber struct {
	ObjHeader
	Value Value
}
