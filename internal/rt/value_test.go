package rt

import (
	"testing"

	"github.com/cedar-lang/cedar/internal/intern"
)

func newTestRegistry() *Registry {
	return NewRegistry(intern.New())
}

func TestIntArithmetic(t *testing.T) {
	reg := newTestRegistry()
	sum, err := Add(reg, nil, Int(2), Int(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := sum.AsInt(); !ok || n != 5 {
		t.Fatalf("expected 5, got %v (ok=%v)", sum, ok)
	}
}

func TestMixedArithmeticPromotesToFloat(t *testing.T) {
	reg := newTestRegistry()
	v, err := Add(reg, nil, Int(2), Float(0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsFloat() {
		t.Fatalf("expected promotion to float, got tag %v", v.Tag())
	}
	f, _ := v.AsFloat()
	if f != 2.5 {
		t.Fatalf("expected 2.5, got %v", f)
	}
}

func TestDivisionByZero(t *testing.T) {
	reg := newTestRegistry()
	if _, err := Div(reg, nil, Int(1), Int(0)); err == nil {
		t.Fatalf("expected division by zero to error")
	}
}

func TestEqualAndCompare(t *testing.T) {
	reg := newTestRegistry()
	if !Equal(reg, Int(3), Int(3)) {
		t.Fatalf("expected 3 = 3")
	}
	if Equal(reg, Int(3), Int(4)) {
		t.Fatalf("expected 3 != 4")
	}
	c, err := Compare(reg, nil, Int(3), Int(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c >= 0 {
		t.Fatalf("expected 3 < 4, got compare result %d", c)
	}
}

func TestNilIsTotal(t *testing.T) {
	if !Nil.IsNil() {
		t.Fatalf("expected the zero Nil value to report IsNil")
	}
	if Obj(nil) != Nil {
		t.Fatalf("expected Obj(nil) to collapse to Nil")
	}
}

func TestConsFirstRest(t *testing.T) {
	reg := newTestRegistry()
	c := MakeCons(reg, Int(1), MakeCons(reg, Int(2), Nil))
	first, err := First(reg, nil, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := first.AsInt(); n != 1 {
		t.Fatalf("expected first = 1, got %v", first)
	}
	rest, err := Rest(reg, nil, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restCons, ok := rest.Object().(*Cons)
	if !ok {
		t.Fatalf("expected rest to be a cons cell, got %T", rest.Object())
	}
	if n, _ := restCons.Car.AsInt(); n != 2 {
		t.Fatalf("expected rest's car = 2, got %v", restCons.Car)
	}
}

func TestStringHash(t *testing.T) {
	reg := newTestRegistry()
	a := Obj(NewStr(reg, "hello"))
	b := Obj(NewStr(reg, "hello"))
	ha, err := Hash(reg, nil, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hb, err := Hash(reg, nil, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ha != hb {
		t.Fatalf("expected equal strings to hash identically")
	}
}
