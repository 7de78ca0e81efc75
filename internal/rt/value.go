// Package rt is the hard core of the cedar runtime: the tagged value
// reference (C1), the heap object header and attribute map (C2), the
// first-class type system (C3), and the core data objects (C5) — list,
// vector, dict, string, symbol, keyword, number, lambda, module, and the
// data shape of fibers and channels. These interlock tightly enough (a
// value can hold an object, an object's type is itself an object, a type's
// field table holds values...) that splitting them into separate packages
// would only produce an import cycle, so they are grouped the way the
// original cedar runtime groups ref/object/objtype in one translation unit.
package rt

import (
	"fmt"
	"math"

	"github.com/cedar-lang/cedar/internal/intern"
)

// Tag discriminates the payload carried by a Value.
type Tag uint8

const (
	TagNil Tag = iota
	TagInt
	TagFloat
	TagPtr // raw VM-internal payload: frame index, instruction pointer
	TagObj
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagPtr:
		return "ptr"
	case TagObj:
		return "obj"
	default:
		return "?"
	}
}

// Heaper is implemented by every heap object. Types embed ObjHeader, which
// provides Header() by promotion, so satisfying this interface is usually
// free.
type Heaper interface {
	Header() *ObjHeader
}

// Value is the tagged reference described in §3.1. It is always in exactly
// one tag state; a Value never needs a pointer receiver to be immutable.
type Value struct {
	tag Tag
	i   int64
	f   float64
	obj Heaper
}

// Nil is the canonical nil value: a null heap object pointer.
var Nil = Value{tag: TagObj, obj: nil}

// Int constructs an immediate integer value.
func Int(i int64) Value { return Value{tag: TagInt, i: i} }

// Float constructs an immediate double value.
func Float(f float64) Value { return Value{tag: TagFloat, f: f} }

// Ptr constructs a raw VM-internal payload (frame pointer / instruction
// pointer) smuggled onto the value stack per the calling convention of
// §4.7. It is never visible to cedar source.
func Ptr(p int64) Value { return Value{tag: TagPtr, i: p} }

// Obj wraps a heap object. A nil Heaper produces the nil value, keeping
// IsNil total as required by §3.1.
func Obj(o Heaper) Value {
	if o == nil {
		return Nil
	}
	return Value{tag: TagObj, obj: o}
}

func (v Value) Tag() Tag { return v.tag }

// IsNil reports whether v is the nil value. Total: never panics.
func (v Value) IsNil() bool { return v.tag == TagObj && v.obj == nil }

func (v Value) IsInt() bool    { return v.tag == TagInt }
func (v Value) IsFloat() bool  { return v.tag == TagFloat }
func (v Value) IsNumber() bool { return v.tag == TagInt || v.tag == TagFloat }
func (v Value) IsObj() bool    { return v.tag == TagObj && v.obj != nil }
func (v Value) IsPtr() bool    { return v.tag == TagPtr }

func (v Value) AsInt() (int64, bool) {
	if v.tag != TagInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsFloat() (float64, bool) {
	if v.tag != TagFloat {
		return 0, false
	}
	return v.f, true
}

func (v Value) AsPtr() (int64, bool) {
	if v.tag != TagPtr {
		return 0, false
	}
	return v.i, true
}

// AsFloat64 coerces either numeric tag to float64, for mixed arithmetic.
func (v Value) AsFloat64() (float64, bool) {
	switch v.tag {
	case TagInt:
		return float64(v.i), true
	case TagFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Object returns the underlying heap object, or nil if v is not a live
// object reference (nil value, immediate number, or raw pointer).
func (v Value) Object() Heaper {
	if v.tag != TagObj {
		return nil
	}
	return v.obj
}

// TypeOf returns the runtime type of v, consulting the registry for
// immediate numerics and resolving through the object header otherwise.
func TypeOf(reg *Registry, v Value) *Type {
	switch v.tag {
	case TagNil:
		return reg.NilType
	case TagInt, TagFloat:
		return reg.NumberType
	case TagObj:
		if v.obj == nil {
			return reg.NilType
		}
		return v.obj.Header().Type
	default:
		return reg.ObjectType
	}
}

// Err is the kind of failure operations on values can raise; it is kept
// deliberately small so cedarerr can wrap it with source position and a
// call stack without this package needing to know about either.
type Err struct {
	Kind    string // "Type", "Arity", "Arithmetic", "IndexRange", "Unbound", "Serialization"
	Message string
}

func (e *Err) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func typeErr(format string, args ...interface{}) error {
	return &Err{Kind: "Type", Message: fmt.Sprintf(format, args...)}
}

func arithErr(format string, args ...interface{}) error {
	return &Err{Kind: "Arithmetic", Message: fmt.Sprintf(format, args...)}
}

// Dispatcher is satisfied by the VM: arithmetic and first/rest on a
// non-builtin operand self-call a method on the operand's type, per §4.1.
// rt cannot import vm (vm imports rt for the data model), so the call-out
// is expressed as an interface the VM installs once at startup.
type Dispatcher interface {
	// CallMethod invokes the zero-or-more-arg method named by methodID on
	// recv's type, with args, and returns its result.
	CallMethod(recv Value, methodID intern.ID, args []Value) (Value, error)
}

// Add implements §4.1 arithmetic promotion and dispatch.
func Add(reg *Registry, d Dispatcher, a, b Value) (Value, error) {
	return arith(reg, d, a, b, reg.SymPlus, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func Sub(reg *Registry, d Dispatcher, a, b Value) (Value, error) {
	return arith(reg, d, a, b, reg.SymMinus, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func Mul(reg *Registry, d Dispatcher, a, b Value) (Value, error) {
	return arith(reg, d, a, b, reg.SymStar, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

func Div(reg *Registry, d Dispatcher, a, b Value) (Value, error) {
	if a.IsNumber() && b.IsNumber() {
		if a.IsInt() && b.IsInt() {
			bi, _ := b.AsInt()
			if bi == 0 {
				return Nil, arithErr("division by zero")
			}
			ai, _ := a.AsInt()
			return Int(ai / bi), nil
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return Float(af / bf), nil
	}
	return dispatchArith(reg, d, a, b, reg.SymSlash)
}

func arith(reg *Registry, d Dispatcher, a, b Value, sym intern.ID, ints func(int64, int64) int64, floats func(float64, float64) float64) (Value, error) {
	if a.IsNumber() && b.IsNumber() {
		if a.IsInt() && b.IsInt() {
			ai, _ := a.AsInt()
			bi, _ := b.AsInt()
			return Int(ints(ai, bi)), nil
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return Float(floats(af, bf)), nil
	}
	return dispatchArith(reg, d, a, b, sym)
}

func dispatchArith(reg *Registry, d Dispatcher, a, b Value, sym intern.ID) (Value, error) {
	if !a.IsObj() {
		return Nil, typeErr("operand of type %s does not support arithmetic", TypeOf(reg, a).Name())
	}
	if d == nil {
		return Nil, typeErr("no dispatcher installed for operator self-call")
	}
	return d.CallMethod(a, sym, []Value{b})
}

// First implements §4.1: cons cells are read directly, everything else
// self-calls "first".
func First(reg *Registry, d Dispatcher, v Value) (Value, error) {
	if v.IsNil() {
		return Nil, nil
	}
	if c, ok := v.Object().(*Cons); ok {
		return c.Car, nil
	}
	return selfCall(reg, d, v, reg.SymFirst)
}

// Rest implements §4.1 the same way for "rest".
func Rest(reg *Registry, d Dispatcher, v Value) (Value, error) {
	if v.IsNil() {
		return Nil, nil
	}
	if c, ok := v.Object().(*Cons); ok {
		return c.Cdr, nil
	}
	return selfCall(reg, d, v, reg.SymRest)
}

func selfCall(reg *Registry, d Dispatcher, v Value, sym intern.ID) (Value, error) {
	if !v.IsObj() {
		return Nil, typeErr("%s is not a sequence", TypeOf(reg, v).Name())
	}
	if d == nil {
		return Nil, typeErr("no dispatcher installed for first/rest self-call")
	}
	return d.CallMethod(v, sym, nil)
}

// MakeCons allocates a new cons cell. The empty list is nil, never an
// empty *Cons, so MakeCons(reg, a, Nil) is the canonical one-element list.
func MakeCons(reg *Registry, a, b Value) Value {
	return Obj(&Cons{ObjHeader: ObjHeader{Type: reg.ListType}, Car: a, Cdr: b})
}

// Equal implements value equality: numeric value equality across int/float,
// content equality for strings/lists/vectors/dicts, identity otherwise.
func Equal(reg *Registry, v1, v2 Value) bool {
	if v1.IsNumber() && v2.IsNumber() {
		f1, _ := v1.AsFloat64()
		f2, _ := v2.AsFloat64()
		return f1 == f2
	}
	if v1.IsNil() || v2.IsNil() {
		return v1.IsNil() && v2.IsNil()
	}
	if v1.tag != v2.tag {
		return false
	}
	switch o1 := v1.Object().(type) {
	case *Cons:
		o2, ok := v2.Object().(*Cons)
		return ok && Equal(reg, o1.Car, o2.Car) && Equal(reg, o1.Cdr, o2.Cdr)
	case *Str:
		o2, ok := v2.Object().(*Str)
		return ok && o1.S == o2.S
	case *Vector:
		o2, ok := v2.Object().(*Vector)
		if !ok || o1.Len() != o2.Len() {
			return false
		}
		for i := 0; i < o1.Len(); i++ {
			if !Equal(reg, o1.Get(i), o2.Get(i)) {
				return false
			}
		}
		return true
	case *Dict:
		o2, ok := v2.Object().(*Dict)
		if !ok || o1.Len() != o2.Len() {
			return false
		}
		for _, k := range o1.Keys() {
			a, _, err1 := o1.Get(reg, nil, k)
			b, found, err2 := o2.Get(reg, nil, k)
			if err1 != nil || err2 != nil || !found || !Equal(reg, a, b) {
				return false
			}
		}
		return true
	case *Symbol:
		o2, ok := v2.Object().(*Symbol)
		return ok && o1.ID == o2.ID
	case *Keyword:
		o2, ok := v2.Object().(*Keyword)
		return ok && o1.ID == o2.ID
	default:
		return v1.obj == v2.obj
	}
}

// Hash implements §3.1's total hash function.
func Hash(reg *Registry, d Dispatcher, v Value) (uint64, error) {
	switch v.tag {
	case TagNil:
		return 0, nil
	case TagInt:
		return uint64(v.i), nil
	case TagFloat:
		return math.Float64bits(v.f), nil
	case TagObj:
		if v.obj == nil {
			return 0, nil
		}
		switch o := v.obj.(type) {
		case *Str:
			return fnv64(o.S), nil
		case *Symbol:
			return uint64(o.ID) * 1099511628211, nil
		case *Keyword:
			return uint64(o.ID)*1099511628211 + 1, nil
		case *Cons:
			h1, err := Hash(reg, d, o.Car)
			if err != nil {
				return 0, err
			}
			h2, err := Hash(reg, d, o.Cdr)
			if err != nil {
				return 0, err
			}
			return h1*31 + h2, nil
		case *Vector:
			var h uint64 = 17
			for i := 0; i < o.Len(); i++ {
				eh, err := Hash(reg, d, o.Get(i))
				if err != nil {
					return 0, err
				}
				h = h*31 + eh
			}
			return h, nil
		default:
			if d != nil {
				if res, err := d.CallMethod(v, reg.SymHash, nil); err == nil {
					if i, ok := res.AsInt(); ok {
						return uint64(i), nil
					}
				}
			}
			return identityHash(o), nil
		}
	default:
		return 0, typeErr("value of tag %s is not hashable", v.tag)
	}
}

// identityHash hashes an object's address. Stable for the object's
// lifetime, which is all §3.1 requires of objects lacking a hash method.
func identityHash(o Heaper) uint64 {
	return fnv64(fmt.Sprintf("%p", o))
}

func fnv64(s string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// Compare implements the total ordering of §4.1: numeric value order when
// both operands are numeric, else ordering by hash difference.
func Compare(reg *Registry, d Dispatcher, a, b Value) (int, error) {
	if a.IsNumber() && b.IsNumber() {
		fa, _ := a.AsFloat64()
		fb, _ := b.AsFloat64()
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	}
	ha, err := Hash(reg, d, a)
	if err != nil {
		return 0, err
	}
	hb, err := Hash(reg, d, b)
	if err != nil {
		return 0, err
	}
	switch {
	case ha < hb:
		return -1, nil
	case ha > hb:
		return 1, nil
	default:
		return 0, nil
	}
}
