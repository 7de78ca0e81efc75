package rt

import (
	"reflect"

	"github.com/cedar-lang/cedar/internal/intern"
)

// objAddr returns the heap address of o, used only to answer the
// synthetic "__addr__" attribute; it carries no GC or aliasing meaning.
func objAddr(o Heaper) uintptr {
	return reflect.ValueOf(o).Pointer()
}

// ObjHeader is embedded (anonymously) by every heap object. Embedding gives
// the embedding struct the Header() method for free, satisfying Heaper by
// promotion — the idiomatic Go stand-in for the original's object base
// class (§3.2).
type ObjHeader struct {
	Type  *Type
	attrs *AttrMap
}

// Header implements Heaper.
func (h *ObjHeader) Header() *ObjHeader { return h }

const (
	initialBuckets = 8
	maxLoadFactor  = 1.0
)

type attrEntry struct {
	key intern.ID
	val Value
}

// AttrMap is the per-instance attribute map of §3.2/§4.2: an open hash over
// symbol ids with chained buckets, rehashing past load factor 1.
type AttrMap struct {
	buckets [][]attrEntry
	count   int
}

func newAttrMap() *AttrMap {
	return &AttrMap{buckets: make([][]attrEntry, initialBuckets)}
}

func (m *AttrMap) bucketIndex(key intern.ID, nbuckets int) int {
	return int(uint32(key)) % nbuckets
}

// Get returns the value stored under key in this map only (it does not
// consult the type lookup chain — see Lookup in type.go for that).
func (m *AttrMap) Get(key intern.ID) (Value, bool) {
	if m == nil || len(m.buckets) == 0 {
		return Nil, false
	}
	idx := m.bucketIndex(key, len(m.buckets))
	for _, e := range m.buckets[idx] {
		if e.key == key {
			return e.val, true
		}
	}
	return Nil, false
}

// Set inserts or replaces the value stored under key.
func (m *AttrMap) Set(key intern.ID, val Value) {
	idx := m.bucketIndex(key, len(m.buckets))
	for i, e := range m.buckets[idx] {
		if e.key == key {
			m.buckets[idx][i].val = val
			return
		}
	}
	m.buckets[idx] = append(m.buckets[idx], attrEntry{key: key, val: val})
	m.count++
	if float64(m.count)/float64(len(m.buckets)) > maxLoadFactor {
		m.rehash()
	}
}

// Delete removes key from the map, if present.
func (m *AttrMap) Delete(key intern.ID) {
	if m == nil {
		return
	}
	idx := m.bucketIndex(key, len(m.buckets))
	bucket := m.buckets[idx]
	for i, e := range bucket {
		if e.key == key {
			m.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			m.count--
			return
		}
	}
}

func (m *AttrMap) rehash() {
	old := m.buckets
	m.buckets = make([][]attrEntry, len(old)*2)
	m.count = 0
	for _, bucket := range old {
		for _, e := range bucket {
			m.Set(e.key, e.val)
		}
	}
}

// synthetic attribute ids, resolved specially by GetAttr below rather than
// stored in any map (§4.2: "__class__" and "__addr__").
var (
	idClass intern.ID = -1
	idAddr  intern.ID = -2
)

// BindSyntheticIDs wires the reserved attribute names into the intern
// table so GetAttr can recognize them regardless of interning
// order. Called once during registry bootstrap.
func BindSyntheticIDs(t *intern.Table) {
	idClass = t.Intern("__class__")
	idAddr = t.Intern("__addr__")
}

// GetAttr implements §3.2's attribute lookup order: per-instance map, then
// the type lookup chain (type fields, parent fields breadth-first, then
// object fields).
func GetAttr(reg *Registry, o Heaper, key intern.ID) (Value, bool) {
	h := o.Header()
	switch key {
	case idClass:
		return Obj(h.Type), true
	case idAddr:
		return Int(int64(uintptr(objAddr(o)))), true
	}
	if v, ok := h.attrs.Get(key); ok {
		return v, true
	}
	if h.Type != nil {
		return h.Type.Lookup(key)
	}
	return Nil, false
}

// SetAttr sets a per-instance attribute, lazily allocating the map.
func SetAttr(o Heaper, key intern.ID, val Value) {
	h := o.Header()
	if h.attrs == nil {
		h.attrs = newAttrMap()
	}
	h.attrs.Set(key, val)
}
