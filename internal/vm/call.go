package vm

import (
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// Apply runs lam to completion against args on a fresh, throwaway fiber —
// the re-entrant "just call this lambda and give me back its value" path
// shared by CallMethod (§4.1 self-calls), macro expansion, and any builtin
// that needs to invoke a cedar callback synchronously. It never yields:
// nested fibers created this way always run to completion before Apply
// returns, since they have no scheduler identity of their own to be
// preempted by; a sleep requested on such a fiber is dropped.
func (vm *VM) Apply(lam *rt.Lambda, args []rt.Value) (rt.Value, error) {
	fiber := rt.NewFiber(vm.reg)
	effective := lam.EffectiveArgs(args)
	if lam.IsNative() {
		return lam.Native(vm.reg, vm, fiber, effective)
	}
	if !lam.Varargs && len(effective) != lam.ArgCount {
		return rt.Nil, cedarerr.New(cedarerr.KindArity, "%s expects %d argument(s), got %d", lam.Name, lam.ArgCount, len(effective))
	}
	if lam.Varargs && len(effective) < lam.ArgCount {
		return rt.Nil, cedarerr.New(cedarerr.KindArity, "%s expects at least %d argument(s), got %d", lam.Name, lam.ArgCount, len(effective))
	}
	fiber.PushFrame(lam, 0, rt.List(vm.reg, effective...))
	for !fiber.Done {
		fiber.SleepRequest = 0
		if err := vm.Run(fiber, nil); err != nil {
			return rt.Nil, err
		}
	}
	return fiber.Result, fiber.Err
}

// CallMethod implements rt.Dispatcher: recv's type is resolved and
// methodID looked up through its field/parent chain (§4.3), then the
// bound method is applied with recv prepended to args — the "self-call"
// convention named in §4.1 ("operand of type X self-calls a method on its
// type").
func (vm *VM) CallMethod(recv rt.Value, methodID intern.ID, args []rt.Value) (rt.Value, error) {
	typ := rt.TypeOf(vm.reg, recv)
	bound, ok := typ.Lookup(methodID)
	if !ok {
		return rt.Nil, cedarerr.New(cedarerr.KindType, "%s has no method %s", typ.Name(), vm.interner.MustUnintern(methodID))
	}
	lam, ok := bound.Object().(*rt.Lambda)
	if !ok {
		return rt.Nil, cedarerr.New(cedarerr.KindType, "%s.%s is not callable", typ.Name(), vm.interner.MustUnintern(methodID))
	}
	full := make([]rt.Value, 0, len(args)+1)
	full = append(full, recv)
	full = append(full, args...)
	return vm.Apply(lam, full)
}

// symMacros is the well-known name of the per-module macro table (§4.6),
// interned on each use: DefMacro installs entries there, and
// LookupMacro/RunMacro consult it the same way emitNameLoad consults
// local/upvalue/global scope for ordinary names.
var symMacros = "*macros*"

// LookupMacro implements compiler.MacroRunner: a macro is an ordinary
// lambda bound under the macro name in mod's (or an ancestor module's)
// macro table, distinguished from a function binding so plain calls to a
// same-named function are unaffected.
func (vm *VM) LookupMacro(mod *rt.Module, sym rt.Value) (*rt.Lambda, bool) {
	nameSym, ok := sym.Object().(*rt.Symbol)
	if !ok {
		return nil, false
	}
	table, ok := vm.macroTable(mod)
	if !ok {
		return nil, false
	}
	v, ok, err := table.Get(vm.reg, vm, rt.Obj(rt.NewSymbol(vm.reg, nameSym.ID)))
	if err != nil || !ok {
		return nil, false
	}
	lam, ok := v.Object().(*rt.Lambda)
	return lam, ok
}

// RunMacro expands a macro call: the (unevaluated) argument list is
// applied directly to the macro lambda, and its return value is the
// replacement form the compiler then compiles in place of the call.
func (vm *VM) RunMacro(macro *rt.Lambda, argList rt.Value) (rt.Value, error) {
	args, ok := rt.ToSlice(argList)
	if !ok {
		return rt.Nil, cedarerr.New(cedarerr.KindCompile, "macro argument list must be a proper list")
	}
	return vm.Apply(macro, args)
}

// macroTable returns the Dict bound to *macros* in mod, if any.
func (vm *VM) macroTable(mod *rt.Module) (*rt.Dict, bool) {
	id := vm.interner.Intern(symMacros)
	v, ok := mod.Find(id, mod)
	if !ok {
		return nil, false
	}
	d, ok := v.Object().(*rt.Dict)
	return d, ok
}

// DefMacro installs fn under name in mod's macro table (§4.6), creating
// the table on first use.
func (vm *VM) DefMacro(mod *rt.Module, name intern.ID, fn *rt.Lambda) {
	id := vm.interner.Intern(symMacros)
	table, ok := vm.macroTable(mod)
	if !ok {
		table = rt.NewDict()
		table.Type = vm.reg.DictType
		mod.Def(id, rt.Obj(table))
	}
	table.Set(vm.reg, vm, rt.Obj(rt.NewSymbol(vm.reg, name)), rt.Obj(fn))
}
