package rt

import "github.com/cedar-lang/cedar/internal/intern"

// Lambda is the runtime shape of a callable (§3.5): either a bytecode
// lambda compiled from a `fn`/`lambda` form, or a native lambda wrapping a
// host Go function bound through the builtin ABI. Both shapes share one
// Go type because every caller in the VM dispatches through the same
// Apply path regardless of which one it holds.
type Lambda struct {
	ObjHeader

	Name string

	// Bytecode lambda fields. Code is declared as interface{} here (it
	// holds a *bytecode.Chunk) so this package is not forced to
	// import internal/bytecode; the vm package knows the concrete type.
	Code interface{}

	ArgCount   int
	Varargs    bool
	VarargSlot int
	StackDepth int
	Module     *Module

	// SlotCount is the size of the closure-slot array (frame.Locals) this
	// lambda needs: parameters, def-bound locals, and captured upvalues
	// all share this one flat array, per the scope analysis of §4.7.
	SlotCount int

	// Upvalues holds, for this particular closure instance, a pointer to
	// the shared Cell each captured variable lives in — not a copy of its
	// value. MAKE_CLOSURE re-installs these same cells into the callee's
	// own Locals on every call, so a def/SET_LOCAL against a captured
	// variable during one call is visible to every later call of this
	// same closure instance (§4.7, §8 P6).
	Upvalues []*Cell

	// UpvalueSources/UpvalueSlots are compiled-in per the template (shared
	// by every closure instance created from this lambda literal):
	// UpvalueSources[i] says where MAKE_FUNC should read captured value i
	// from in the *defining* frame; UpvalueSlots[i] says which of this
	// lambda's own closure slots MAKE_CLOSURE should install it into when
	// this lambda is later invoked.
	UpvalueSources []UpvalueSource
	UpvalueSlots   []int

	// Native lambda fields.
	Native NativeFunc

	// PrimingArgs holds arguments bound ahead of a call via prime_args
	// (§3.5 "priming"), consumed (and cleared) the next time this lambda
	// is applied.
	PrimingArgs []Value
}

// UpvalueSource names where a captured value comes from in the frame
// executing MAKE_FUNC: one of that frame's own closure slots, or one of
// that frame's lambda's already-captured upvalues (the usual one-level
// indirection chain for upvalues captured through more than one nested
// fn).
type UpvalueSource struct {
	FromLocal bool
	Index     int
}

// NativeFunc is the host-callable ABI for builtins (§6): it receives the
// registry, a dispatcher for re-entrant method calls, the fiber the native
// is running on, and the argument vector, and returns a value or an error.
// A native invoked through Apply (self-calls, macro expansion) runs on a
// throwaway fiber with no scheduler identity of its own; SleepRequest set
// on it has no one to honor it. Fiber access lets a handful of builtins
// (sleep, import) touch their own call_context the way the
// original's native callables receive a (fiber, scheduler, module)
// triple; most builtins ignore it entirely.
type NativeFunc func(reg *Registry, disp Dispatcher, fiber *Fiber, args []Value) (Value, error)

func NewBytecodeLambda(reg *Registry, name string, code interface{}, argCount int, varargs bool, stackDepth int, mod *Module) *Lambda {
	return &Lambda{
		ObjHeader:  ObjHeader{Type: reg.LambdaType},
		Name:       name,
		Code:       code,
		ArgCount:   argCount,
		Varargs:    varargs,
		StackDepth: stackDepth,
		Module:     mod,
	}
}

func NewNativeLambda(reg *Registry, name string, fn NativeFunc) *Lambda {
	return &Lambda{
		ObjHeader: ObjHeader{Type: reg.LambdaType},
		Name:      name,
		Native:    fn,
	}
}

func (l *Lambda) IsNative() bool { return l.Native != nil }

// Copy returns a shallow clone of l sharing the same code/constants but an
// independent Upvalues slice, the operation closures need when a `fn` body
// is re-entered and must capture a fresh set of enclosing locals (§3.5
// "copy").
func (l *Lambda) Copy() *Lambda {
	cp := *l
	if l.Upvalues != nil {
		cp.Upvalues = append([]*Cell(nil), l.Upvalues...)
	}
	cp.PrimingArgs = nil
	return &cp
}

// PrimeArgs binds args ahead of the next Apply, implementing the
// prime_args partial-application operation named in §3.5.
func (l *Lambda) PrimeArgs(args []Value) *Lambda {
	cp := l.Copy()
	cp.PrimingArgs = append([]Value(nil), args...)
	return cp
}

// EffectiveArgs merges any primed arguments ahead of call-site arguments,
// the step every Apply path must perform before binding parameters.
func (l *Lambda) EffectiveArgs(callArgs []Value) []Value {
	if len(l.PrimingArgs) == 0 {
		return callArgs
	}
	out := make([]Value, 0, len(l.PrimingArgs)+len(callArgs))
	out = append(out, l.PrimingArgs...)
	out = append(out, callArgs...)
	return out
}

// BindAnonymousParam interns the identifier `it` used by the `\`
// anonymous-lambda shorthand (§3 Supplemented Features): `\(+ it 1)`
// desugars to `(fn (it) (+ it 1))` at read/compile time, so the only
// runtime trace of the shorthand is this one well-known name. Intern is
// idempotent and cheap (RLock fast path), so no caching is needed here.
func BindAnonymousParam(interner *intern.Table) intern.ID {
	return interner.Intern("it")
}
