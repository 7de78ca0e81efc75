package builtin

import (
	"testing"

	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

func lookup(t *testing.T, reg *rt.Registry, tab *intern.Table, mod *rt.Module, name string) *rt.Lambda {
	t.Helper()
	id := tab.Intern(name)
	v, ok := mod.Find(id, mod)
	if !ok {
		t.Fatalf("expected %s to be bound", name)
	}
	lam, ok := v.Object().(*rt.Lambda)
	if !ok {
		t.Fatalf("expected %s to be a lambda, got %T", name, v.Object())
	}
	return lam
}

func callNative(t *testing.T, lam *rt.Lambda, reg *rt.Registry, args ...rt.Value) rt.Value {
	t.Helper()
	v, err := lam.Native(reg, nil, nil, args)
	if err != nil {
		t.Fatalf("unexpected error calling %s: %v", lam.Name, err)
	}
	return v
}

func TestBitsAndOrNot(t *testing.T) {
	tab := intern.New()
	reg := rt.NewRegistry(tab)
	mod := rt.NewModule("bits-test", reg)
	registerBits(reg, tab, mod)

	and := callNative(t, lookup(t, reg, tab, mod, "bits/and"), reg, rt.Int(0b1100), rt.Int(0b1010))
	if n, _ := and.AsInt(); n != 0b1000 {
		t.Fatalf("expected 0b1000, got %b", n)
	}
	or := callNative(t, lookup(t, reg, tab, mod, "bits/or"), reg, rt.Int(0b1100), rt.Int(0b1010))
	if n, _ := or.AsInt(); n != 0b1110 {
		t.Fatalf("expected 0b1110, got %b", n)
	}
	not := callNative(t, lookup(t, reg, tab, mod, "bits/not"), reg, rt.Int(0))
	if n, _ := not.AsInt(); n != -1 {
		t.Fatalf("expected bits/not 0 = -1, got %d", n)
	}
}

func TestBitsShiftClampsNegative(t *testing.T) {
	tab := intern.New()
	reg := rt.NewRegistry(tab)
	mod := rt.NewModule("bits-test", reg)
	registerBits(reg, tab, mod)

	shl := lookup(t, reg, tab, mod, "bits/shift-left")
	got := callNative(t, shl, reg, rt.Int(1), rt.Int(-5))
	if n, _ := got.AsInt(); n != 1 {
		t.Fatalf("expected a negative shift amount to clamp to 0 (no-op), got %d", n)
	}
}

func TestMathMaxMin(t *testing.T) {
	tab := intern.New()
	reg := rt.NewRegistry(tab)
	mod := rt.NewModule("math-test", reg)
	registerMath(reg, tab, mod)

	max := callNative(t, lookup(t, reg, tab, mod, "math/max"), reg, rt.Int(1), rt.Float(4.2), rt.Int(3))
	f, _ := max.AsFloat64()
	if f != 4.2 {
		t.Fatalf("expected max = 4.2, got %v", f)
	}
	min := callNative(t, lookup(t, reg, tab, mod, "math/min"), reg, rt.Int(1), rt.Float(4.2), rt.Int(3))
	f, _ = min.AsFloat64()
	if f != 1 {
		t.Fatalf("expected min = 1, got %v", f)
	}
}

func TestMathSqrt(t *testing.T) {
	tab := intern.New()
	reg := rt.NewRegistry(tab)
	mod := rt.NewModule("math-test", reg)
	registerMath(reg, tab, mod)

	got := callNative(t, lookup(t, reg, tab, mod, "math/sqrt"), reg, rt.Int(9))
	f, _ := got.AsFloat64()
	if f != 3 {
		t.Fatalf("expected sqrt(9) = 3, got %v", f)
	}
}
