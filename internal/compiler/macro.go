package compiler

import "github.com/cedar-lang/cedar/internal/rt"

// MacroRunner lets the compiler ask whether a call form's head symbol is
// bound to a macro lambda and, if so, run it to completion (§4.8
// "Macroexpansion: before compiling a call form, the compiler asks the
// runtime whether the head symbol is bound to a macro lambda; if so, it
// invokes that lambda to completion via a nested fiber run"). The compiler
// package does not import vm; this indirection is expressed as an
// interface the vm package implements and installs at startup — the same dependency-
// inversion shape rt.Dispatcher uses for arithmetic self-calls.
type MacroRunner interface {
	// LookupMacro reports whether sym names a macro lambda visible from
	// mod, returning it if so.
	LookupMacro(mod *rt.Module, sym rt.Value) (*rt.Lambda, bool)

	// RunMacro invokes macro synchronously to completion with the
	// unevaluated argument list (a proper or dotted list built by the
	// reader), returning its result value for the compiler to recompile.
	RunMacro(macro *rt.Lambda, argList rt.Value) (rt.Value, error)
}
