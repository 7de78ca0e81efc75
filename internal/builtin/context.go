// Package builtin implements the native bindings spec.md §6 names as
// "external collaborators whose interfaces are named": the core language
// primitives the compiler assumes exist in the global scope (arithmetic,
// cons/first/rest, concat, equality, str/repr, go*/send/recv/sleep), plus
// the domain library bindings (math, os, stringutil, bits, tcp, serialize,
// dynload) that a complete cedar distribution ships.
//
// Every binding here has the shape rt.NativeFunc: (registry, dispatcher,
// fiber, args) -> (value, error). Most ignore the fiber argument; sleep and
// import are the exceptions, using it the way
// the original's native callables receive a (fiber, scheduler, module)
// call_context triple (§3 Supplemented Features).
package builtin

import (
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// Printer is satisfied by *vm.VM; builtin does not import vm directly,
// so bindings that need str/repr rendering (print, dict/vector display)
// type-assert the rt.Dispatcher they are handed against this narrower
// interface rather than importing vm directly.
type Printer interface {
	Str(rt.Value) string
	Repr(rt.Value) string
}

// arity checks an exact argument count, the same check doCall performs for
// bytecode lambdas but that native lambdas must do for themselves.
func arity(name string, args []rt.Value, n int) error {
	if len(args) != n {
		return cedarerr.New(cedarerr.KindArity, "%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func arityRange(name string, args []rt.Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return cedarerr.New(cedarerr.KindArity, "%s expects %d-%d argument(s), got %d", name, min, max, len(args))
	}
	return nil
}

func wantInt(name string, v rt.Value) (int64, error) {
	i, ok := v.AsInt()
	if !ok {
		return 0, cedarerr.New(cedarerr.KindType, "%s expects an integer argument", name)
	}
	return i, nil
}

func wantStr(name string, v rt.Value) (*rt.Str, error) {
	s, ok := v.Object().(*rt.Str)
	if !ok {
		return nil, cedarerr.New(cedarerr.KindType, "%s expects a string argument", name)
	}
	return s, nil
}

// def installs a native builtin under name in mod.
func def(reg *rt.Registry, t *intern.Table, mod *rt.Module, name string, fn rt.NativeFunc) {
	id := t.Intern(name)
	lam := rt.NewNativeLambda(reg, name, fn)
	mod.Def(id, rt.Obj(lam))
}
