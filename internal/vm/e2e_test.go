package vm_test

// End-to-end tests driving real cedar source through the actual reader,
// compiler, and VM together — the same object graph cmd/cedar wires at
// startup — rather than exercising any one package's Go API in isolation.
// These cover the concrete scenarios and properties named in spec.md §8.

import (
	"testing"

	"github.com/cedar-lang/cedar/internal/builtin"
	"github.com/cedar-lang/cedar/internal/compiler"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/reader"
	"github.com/cedar-lang/cedar/internal/rt"
	"github.com/cedar-lang/cedar/internal/scheduler"
	"github.com/cedar-lang/cedar/internal/vm"
)

// harness wires one full interpreter instance — registry, interner, core
// module, VM, compiler, scheduler, and every native binding.
type harness struct {
	reg   *rt.Registry
	t     *intern.Table
	core  *rt.Module
	mach  *vm.VM
	comp  *compiler.Compiler
	sched *scheduler.Runtime
}

func newHarness() *harness {
	interner := intern.New()
	reg := rt.NewRegistry(interner)
	core := rt.NewModule("core", reg)
	machine := vm.New(reg, interner, core)
	sched := scheduler.New(machine)
	comp := compiler.New(reg, interner, machine)
	builtin.Register(reg, interner, core, sched, nil, nil)
	return &harness{reg: reg, t: interner, core: core, mach: machine, comp: comp, sched: sched}
}

func (h *harness) compile(tb testing.TB, src string) *rt.Lambda {
	tb.Helper()
	rd := reader.New(h.reg, h.t, "<test>", src)
	forms, err := rd.ReadAll()
	if err != nil {
		tb.Fatalf("read error: %v", err)
	}
	top, err := h.comp.CompileTopLevel(forms, h.core)
	if err != nil {
		tb.Fatalf("compile error: %v", err)
	}
	return top
}

// run compiles and runs src to completion on a synchronous one-shot fiber,
// the path cmd/cedar's evalSource takes for -e and file arguments.
func (h *harness) run(tb testing.TB, src string) rt.Value {
	tb.Helper()
	top := h.compile(tb, src)
	fiber := rt.NewFiber(h.reg)
	fiber.PushFrame(top, 0, rt.Nil)
	if err := h.mach.Run(fiber, nil); err != nil {
		tb.Fatalf("run error: %v", err)
	}
	if fiber.Err != nil {
		tb.Fatalf("fiber error: %v", fiber.Err)
	}
	return fiber.Result
}

// runScheduled adopts src's top-level fiber into the scheduler instead of
// driving it directly, so `go*`/`channel`/`send`/`recv` (each of which may
// park a fiber on its own goroutine) actually get to run.
func (h *harness) runScheduled(tb testing.TB, src string) rt.Value {
	tb.Helper()
	top := h.compile(tb, src)
	fiber := rt.NewFiber(h.reg)
	fiber.PushFrame(top, 0, rt.Nil)
	job := h.sched.Adopt(fiber)
	job.Wait()
	if fiber.Err != nil {
		tb.Fatalf("fiber error: %v", fiber.Err)
	}
	return fiber.Result
}

func wantInt(tb testing.TB, v rt.Value, want int64) {
	tb.Helper()
	n, ok := v.AsInt()
	if !ok || n != want {
		tb.Fatalf("expected integer %d, got %v", want, v)
	}
}

func wantStr(tb testing.TB, v rt.Value, want string) {
	tb.Helper()
	s, ok := v.Object().(*rt.Str)
	if !ok || s.S != want {
		tb.Fatalf("expected string %q, got %v", want, v)
	}
}

// S1: `(+ 1 2 3)` => 6.
func TestS1Arithmetic(t *testing.T) {
	h := newHarness()
	wantInt(t, h.run(t, "(+ 1 2 3)"), 6)
}

// S2: immediate-lambda invocation: `((fn (x) (* x x)) 7)` => 49.
func TestS2ImmediateLambda(t *testing.T) {
	h := newHarness()
	wantInt(t, h.run(t, "((fn (x) (* x x)) 7)"), 49)
}

// S3/P6: a closure created inside another lambda observes the enclosing
// binding at call time, reflecting later assignments, across repeated
// calls to the same closure instance — not a snapshot frozen at capture.
func TestS3ClosureCaptureIsMutableAcrossCalls(t *testing.T) {
	h := newHarness()
	const src = `
(def mk (fn (n) (fn () (def n (+ n 1)) n)))
(def c (mk 10))
(c)
(c)
(c)
`
	wantInt(t, h.run(t, src), 13)
}

// A second, independently-created closure instance from the same `mk`
// call must not share state with the first: each call to `mk` captures a
// fresh cell, not the same one reused across instances.
func TestS3ClosureInstancesAreIndependent(t *testing.T) {
	h := newHarness()
	const src = `
(def mk (fn (n) (fn () (def n (+ n 1)) n)))
(def a (mk 0))
(def b (mk 100))
(a)
(a)
(b)
(list (a) (b))
`
	result := h.run(t, src)
	vals, ok := rt.ToSlice(result)
	if !ok || len(vals) != 2 {
		t.Fatalf("expected a 2-element list, got %v", result)
	}
	wantInt(t, vals[0], 3)
	wantInt(t, vals[1], 102)
}

// S5/P4: method dispatch precedence. Bar inherits Foo's `greet` when it
// doesn't define its own, but a method Bar defines itself wins.
func TestS5DispatchOverridePrecedence(t *testing.T) {
	h := newHarness()
	const inherited = `
(def Foo (make-type "Foo"))
(set-field Foo 'greet (fn (self) "foo"))
(def Bar (make-type "Bar"))
(add-parent Bar Foo)
((get-field Bar 'greet) (Bar))
`
	wantStr(t, h.run(t, inherited), "foo")

	const overridden = `
(def Foo (make-type "Foo"))
(set-field Foo 'greet (fn (self) "foo"))
(def Bar (make-type "Bar"))
(add-parent Bar Foo)
(set-field Bar 'greet (fn (self) "bar"))
((get-field Bar 'greet) (Bar))
`
	wantStr(t, h.run(t, overridden), "bar")
}

// S6/P5: vectors are persistent — `set` returns a new vector, leaving the
// original untouched, and shares structure for indices it didn't change.
func TestS6VectorImmutability(t *testing.T) {
	h := newHarness()
	const src = `
(def v [1 2 3])
(def v2 (set v 1 9))
(list (get v 1) (get v2 1) (get v 0) (get v2 0))
`
	result := h.run(t, src)
	vals, ok := rt.ToSlice(result)
	if !ok || len(vals) != 4 {
		t.Fatalf("expected a 4-element list, got %v", result)
	}
	wantInt(t, vals[0], 2)
	wantInt(t, vals[1], 9)
	wantInt(t, vals[2], 1)
	wantInt(t, vals[3], 1)
}

// S4/P7: a single producer/consumer pair rendezvous on an unbuffered
// channel; the receiver parks and resumes exactly once with the sent
// value.
func TestS4ChannelRendezvous(t *testing.T) {
	h := newHarness()
	const src = `
(def ch (channel))
(go* (fn () (send ch 42)))
(recv ch)
`
	wantInt(t, h.runScheduled(t, src), 42)
}

// P7, extended: the sequence of values received equals the sequence sent,
// for more than one message over the same rendezvous channel.
func TestP7ChannelSequencePreserved(t *testing.T) {
	h := newHarness()
	const src = `
(def ch (channel))
(go* (fn ()
  (send ch 1)
  (send ch 2)
  (send ch 3)))
(list (recv ch) (recv ch) (recv ch))
`
	result := h.runScheduled(t, src)
	vals, ok := rt.ToSlice(result)
	if !ok || len(vals) != 3 {
		t.Fatalf("expected a 3-element list, got %v", result)
	}
	wantInt(t, vals[0], 1)
	wantInt(t, vals[1], 2)
	wantInt(t, vals[2], 3)
}

// P1: intern idempotence, exercised through the reader reading the same
// symbol twice rather than calling intern.Table directly.
func TestP1InternIdempotenceThroughReader(t *testing.T) {
	h := newHarness()
	wantInt(t, h.run(t, "(def x 5) (def y 5) (if (= (quote x) (quote x)) 1 0)"), 1)
}

// P3: arithmetic promotion — int+int stays an integer, int+float promotes
// to a float equal to the IEEE sum.
func TestP3ArithmeticPromotion(t *testing.T) {
	h := newHarness()
	wantInt(t, h.run(t, "(+ 2 3)"), 5)
	v := h.run(t, "(+ 2 0.5)")
	if !v.IsFloat() {
		t.Fatalf("expected a float, got %v", v)
	}
	f, _ := v.AsFloat()
	if f != 2.5 {
		t.Fatalf("expected 2.5, got %v", f)
	}
}

// Varargs/dotted parameter binding, a supplemented-feature edge case
// alongside the mandatory scenarios: a variadic lambda's tail parameter
// collects the remaining arguments into a list.
func TestVarargsBindRemainderAsList(t *testing.T) {
	h := newHarness()
	const src = `
(def f (fn (a . rest) (cons a rest)))
(f 1 2 3)
`
	result := h.run(t, src)
	vals, ok := rt.ToSlice(result)
	if !ok || len(vals) != 3 {
		t.Fatalf("expected a 3-element list, got %v", result)
	}
	wantInt(t, vals[0], 1)
	wantInt(t, vals[1], 2)
	wantInt(t, vals[2], 3)
}

// try/catch unwinds to the nearest enclosing handler and binds the
// thrown value's message to the catch name.
func TestTryCatchBindsThrownValue(t *testing.T) {
	h := newHarness()
	const src = `
(try
  (/ 1 0)
  (catch e "caught"))
`
	wantStr(t, h.run(t, src), "caught")
}
