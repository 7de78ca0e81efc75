package serialize

import (
	"bytes"
	"testing"

	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

func setup() (*rt.Registry, *intern.Table) {
	tab := intern.New()
	return rt.NewRegistry(tab), tab
}

func roundtrip(t *testing.T, reg *rt.Registry, tab *intern.Table, v rt.Value) rt.Value {
	t.Helper()
	var buf bytes.Buffer
	if err := NewEncoder(&buf, reg, tab).Encode(v); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := NewDecoder(&buf, reg, tab).Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

func TestRoundtripScalars(t *testing.T) {
	reg, tab := setup()
	if got := roundtrip(t, reg, tab, rt.Nil); !got.IsNil() {
		t.Fatalf("expected nil to roundtrip, got %v", got)
	}
	if got := roundtrip(t, reg, tab, rt.Int(42)); !rt.Equal(reg, got, rt.Int(42)) {
		t.Fatalf("expected 42 to roundtrip, got %v", got)
	}
	if got := roundtrip(t, reg, tab, rt.Float(3.5)); !rt.Equal(reg, got, rt.Float(3.5)) {
		t.Fatalf("expected 3.5 to roundtrip, got %v", got)
	}
}

func TestRoundtripString(t *testing.T) {
	reg, tab := setup()
	in := rt.Obj(rt.NewStr(reg, "hello, cedar"))
	got := roundtrip(t, reg, tab, in)
	s, ok := got.Object().(*rt.Str)
	if !ok || s.S != "hello, cedar" {
		t.Fatalf("expected string to roundtrip, got %v", got)
	}
}

func TestRoundtripList(t *testing.T) {
	reg, tab := setup()
	in := rt.List(reg, rt.Int(1), rt.Int(2), rt.Int(3))
	got := roundtrip(t, reg, tab, in)
	vals, ok := rt.ToSlice(got)
	if !ok || len(vals) != 3 {
		t.Fatalf("expected a 3-element list, got %v", got)
	}
	for i, want := range []int64{1, 2, 3} {
		n, _ := vals[i].AsInt()
		if n != want {
			t.Fatalf("element %d: expected %d, got %d", i, want, n)
		}
	}
}

func TestRoundtripVector(t *testing.T) {
	reg, tab := setup()
	in := rt.Obj(rt.NewVector(reg, rt.Int(10), rt.Int(20)))
	got := roundtrip(t, reg, tab, in)
	v, ok := got.Object().(*rt.Vector)
	if !ok || v.Len() != 2 {
		t.Fatalf("expected a 2-element vector, got %v", got)
	}
	n, _ := v.Get(1).AsInt()
	if n != 20 {
		t.Fatalf("expected element 1 = 20, got %d", n)
	}
}

func TestRoundtripDict(t *testing.T) {
	reg, tab := setup()
	dd := rt.NewDict()
	dd.Type = reg.DictType
	key := rt.Obj(rt.NewKeyword(reg, tab.Intern("name")))
	if err := dd.Set(reg, nil, key, rt.Obj(rt.NewStr(reg, "cedar"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := roundtrip(t, reg, tab, rt.Obj(dd))
	outDict, ok := got.Object().(*rt.Dict)
	if !ok {
		t.Fatalf("expected a dict, got %v", got)
	}
	v, ok, err := outDict.Get(reg, nil, key)
	if err != nil || !ok {
		t.Fatalf("expected key to be present: ok=%v err=%v", ok, err)
	}
	s, ok := v.Object().(*rt.Str)
	if !ok || s.S != "cedar" {
		t.Fatalf("expected value \"cedar\", got %v", v)
	}
}

func TestEncodeNativeLambdaFails(t *testing.T) {
	reg, tab := setup()
	lam := rt.NewNativeLambda(reg, "noop", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		return rt.Nil, nil
	})
	var buf bytes.Buffer
	if err := NewEncoder(&buf, reg, tab).Encode(rt.Obj(lam)); err == nil {
		t.Fatalf("expected encoding a native lambda to fail")
	}
}
