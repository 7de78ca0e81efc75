package rt

// Dict is an insertion-ordered map keyed by value-level hash/equality
// (§3.5/§4.5). It keeps a side slice of keys in insertion order so
// iteration order matches insertion order even though lookup goes through
// a hash index.
type Dict struct {
	ObjHeader
	index map[uint64][]dictEntry
	order []Value
}

type dictEntry struct {
	key Value
	val Value
}

func NewDict() *Dict {
	return &Dict{index: map[uint64][]dictEntry{}}
}

// Get returns the value stored under key, using Hash/Equal for value-level
// lookup (requires a Dispatcher for user types with custom hash methods).
func (d *Dict) Get(reg *Registry, disp Dispatcher, key Value) (Value, bool, error) {
	h, err := Hash(reg, disp, key)
	if err != nil {
		return Nil, false, err
	}
	for _, e := range d.index[h] {
		if Equal(reg, e.key, key) {
			return e.val, true, nil
		}
	}
	return Nil, false, nil
}

// Set inserts or replaces key -> val, appending key to the iteration order
// only on first insertion.
func (d *Dict) Set(reg *Registry, disp Dispatcher, key, val Value) error {
	h, err := Hash(reg, disp, key)
	if err != nil {
		return err
	}
	bucket := d.index[h]
	for i, e := range bucket {
		if Equal(reg, e.key, key) {
			bucket[i].val = val
			return nil
		}
	}
	d.index[h] = append(bucket, dictEntry{key: key, val: val})
	d.order = append(d.order, key)
	return nil
}

// Delete removes key, if present.
func (d *Dict) Delete(reg *Registry, disp Dispatcher, key Value) error {
	h, err := Hash(reg, disp, key)
	if err != nil {
		return err
	}
	bucket := d.index[h]
	for i, e := range bucket {
		if Equal(reg, e.key, key) {
			d.index[h] = append(bucket[:i], bucket[i+1:]...)
			for j, k := range d.order {
				if Equal(reg, k, key) {
					d.order = append(d.order[:j], d.order[j+1:]...)
					break
				}
			}
			return nil
		}
	}
	return nil
}

func (d *Dict) Len() int { return len(d.order) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	out := make([]Value, len(d.order))
	copy(out, d.order)
	return out
}

// Values returns the values in insertion (key) order.
func (d *Dict) Values(reg *Registry, disp Dispatcher) []Value {
	out := make([]Value, 0, len(d.order))
	for _, k := range d.order {
		v, _, _ := d.Get(reg, disp, k)
		out = append(out, v)
	}
	return out
}

func (d *Dict) IdxGet(reg *Registry, disp Dispatcher, k Value) (Value, error) {
	v, ok, err := d.Get(reg, disp, k)
	if err != nil {
		return Nil, err
	}
	if !ok {
		return Nil, &Err{Kind: "IndexRange", Message: "key not present in dict"}
	}
	return v, nil
}

func (d *Dict) IdxSet(reg *Registry, disp Dispatcher, k, val Value) (Value, error) {
	if err := d.Set(reg, disp, k, val); err != nil {
		return Nil, err
	}
	return Obj(d), nil
}

// IdxAppend has no natural meaning for a dict; it is a no-op returning the
// dict unchanged, matching the original's idx_append which only expects
// indexable sequences to implement appends meaningfully.
func (d *Dict) IdxAppend(reg *Registry, val Value) Value { return Obj(d) }

func (d *Dict) IdxSize() int { return d.Len() }
