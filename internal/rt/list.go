package rt

// Cons is the two-field cons cell of §3.1/§4.5/GLOSSARY. The empty list is
// nil, never an empty *Cons; a genuine dotted pair (from a bare `.` token
// in the reader) is simply a Cons whose Cdr is not itself nil or a Cons.
type Cons struct {
	ObjHeader
	Car Value
	Cdr Value
}

// List builds a proper list from vs, right to left.
func List(reg *Registry, vs ...Value) Value {
	out := Nil
	for i := len(vs) - 1; i >= 0; i-- {
		out = MakeCons(reg, vs[i], out)
	}
	return out
}

// DottedList builds a list whose final cdr is tail instead of nil, as
// produced by the reader's `.` token (§4.5).
func DottedList(reg *Registry, tail Value, vs ...Value) Value {
	out := tail
	for i := len(vs) - 1; i >= 0; i-- {
		out = MakeCons(reg, vs[i], out)
	}
	return out
}

// ToSlice walks a proper list into a Go slice. Stops at the first
// non-Cons cdr (a dotted tail or nil); ok is false if the list was
// improper.
func ToSlice(v Value) (vals []Value, ok bool) {
	for {
		if v.IsNil() {
			return vals, true
		}
		c, isCons := v.Object().(*Cons)
		if !isCons {
			return vals, false
		}
		vals = append(vals, c.Car)
		v = c.Cdr
	}
}

// ListLen counts the elements of a proper list.
func ListLen(v Value) int {
	n := 0
	for {
		if v.IsNil() {
			return n
		}
		c, ok := v.Object().(*Cons)
		if !ok {
			return n
		}
		n++
		v = c.Cdr
	}
}
