// Package compiler implements C7: walking a value tree produced by the
// reader into bytecode within a lambda plus a constant pool. It follows
// the usual shape of a tree-walking emitter — one compile method per node
// kind, backpatched jump targets for control flow — adapted to walk Lisp
// value trees (cons cells, symbols, literals) rather than a curly-brace-
// language AST.
package compiler

import (
	"github.com/cedar-lang/cedar/internal/bytecode"
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// Compiler holds everything shared across one compilation unit: the type
// registry (for allocating Symbol/Lambda objects), the intern table (to
// resolve special-form head symbols by name), and the macro-expansion
// hook.
type Compiler struct {
	reg      *rt.Registry
	interner *intern.Table
	macros   MacroRunner

	// well-known special-form symbol ids, interned once.
	symDef, symQuote, symQuasiquote, symUnquote, symUnquoteSplicing  intern.ID
	symFn, symLambda, symIf, symDo, symProgn, symTry, symCatch, symGet intern.ID
}

func New(reg *rt.Registry, interner *intern.Table, macros MacroRunner) *Compiler {
	c := &Compiler{reg: reg, interner: interner, macros: macros}
	c.symDef = interner.Intern("def")
	c.symQuote = interner.Intern("quote")
	c.symQuasiquote = interner.Intern("quasiquote")
	c.symUnquote = interner.Intern("unquote")
	c.symUnquoteSplicing = interner.Intern("unquote-splicing")
	c.symFn = interner.Intern("fn")
	c.symLambda = interner.Intern("lambda")
	c.symIf = interner.Intern("if")
	c.symDo = interner.Intern("do")
	c.symProgn = interner.Intern("progn")
	c.symTry = interner.Intern("try")
	c.symCatch = interner.Intern("catch")
	c.symGet = interner.Intern("get")
	return c
}

// unit is the mutable state of one lambda's in-progress compilation: its
// chunk and its scope-analysis frame.
type unit struct {
	chunk *bytecode.Chunk
	scope *funcScope
	mod   *rt.Module
}

// CompileTopLevel compiles a sequence of top-level forms (one source
// file's worth) into a zero-argument bytecode lambda bound to mod: each
// form but the last has its value discarded with SKIP; the last form's
// value is left on the stack before EXIT, matching a REPL's "value of the
// last form" convention.
func (c *Compiler) CompileTopLevel(forms []rt.Value, mod *rt.Module) (*rt.Lambda, error) {
	u := &unit{chunk: bytecode.NewChunk(), scope: newFuncScope(nil), mod: mod}
	for i, f := range forms {
		if err := c.compileExpr(u, f); err != nil {
			return nil, err
		}
		if i < len(forms)-1 {
			u.chunk.WriteOp(bytecode.OpSKIP, bytecode.DebugInfo{})
		}
	}
	if len(forms) == 0 {
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
	}
	u.chunk.WriteOp(bytecode.OpEXIT, bytecode.DebugInfo{})
	u.chunk.StackSize = u.scope.maxSlot + 16
	lambda := rt.NewBytecodeLambda(c.reg, "<top-level>", u.chunk, 0, false, u.chunk.StackSize, mod)
	lambda.SlotCount = u.scope.maxSlot
	return lambda, nil
}

// compileExpr emits code evaluating expr, leaving exactly one value on
// the stack.
func (c *Compiler) compileExpr(u *unit, expr rt.Value) error {
	switch {
	case expr.IsNil():
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
		return nil
	case expr.IsInt():
		i, _ := expr.AsInt()
		u.chunk.WriteOp(bytecode.OpINT, bytecode.DebugInfo{})
		u.chunk.WriteI64(i, bytecode.DebugInfo{})
		return nil
	case expr.IsFloat():
		f, _ := expr.AsFloat()
		u.chunk.WriteOp(bytecode.OpFLOAT, bytecode.DebugInfo{})
		u.chunk.WriteF64(f, bytecode.DebugInfo{})
		return nil
	}

	switch o := expr.Object().(type) {
	case *rt.Symbol:
		return c.compileSymbolRef(u, o)
	case *rt.Cons:
		return c.compileList(u, expr, o)
	default:
		// Strings, keywords, vectors, dicts read literally (not inside a
		// quote) are self-evaluating: embed as a constant.
		idx := u.chunk.AddConstant(expr)
		u.chunk.WriteOp(bytecode.OpCONST, bytecode.DebugInfo{})
		u.chunk.WriteU64(uint64(idx), bytecode.DebugInfo{})
		return nil
	}
}

// compileSymbolRef resolves a bare symbol reference, desugaring dotted
// names per §4.7 ("dot-access desugar (a.b -> (get a 'b))") before
// falling through to local/upvalue/global resolution.
func (c *Compiler) compileSymbolRef(u *unit, sym *rt.Symbol) error {
	name := sym.Name(c.interner)
	if parts, ok := splitDotted(name); ok {
		return c.compileDotChain(u, parts)
	}
	return c.emitNameLoad(u, sym.ID)
}

func (c *Compiler) emitNameLoad(u *unit, id intern.ID) error {
	if slot, ok := u.scope.resolveLocal(id); ok {
		u.chunk.WriteOp(bytecode.OpLOAD_LOCAL, bytecode.DebugInfo{})
		u.chunk.WriteU64(uint64(slot), bytecode.DebugInfo{})
		return nil
	}
	if slot, ok := u.scope.resolveUpvalue(id); ok {
		u.chunk.WriteOp(bytecode.OpLOAD_LOCAL, bytecode.DebugInfo{})
		u.chunk.WriteU64(uint64(slot), bytecode.DebugInfo{})
		return nil
	}
	idx := u.chunk.AddConstant(rt.Obj(rt.NewSymbol(c.reg, id)))
	u.chunk.WriteOp(bytecode.OpLOAD_GLOBAL, bytecode.DebugInfo{})
	u.chunk.WriteU64(uint64(idx), bytecode.DebugInfo{})
	return nil
}

// compileDotChain desugars a.b.c into (get (get a 'b) 'c).
func (c *Compiler) compileDotChain(u *unit, parts []string) error {
	headID := c.interner.Intern(parts[0])
	if err := c.emitNameLoad(u, headID); err != nil {
		return err
	}
	for _, field := range parts[1:] {
		keyIdx := u.chunk.AddConstant(rt.Obj(rt.NewSymbol(c.reg, c.interner.Intern(field))))
		u.chunk.WriteOp(bytecode.OpCONST, bytecode.DebugInfo{})
		u.chunk.WriteU64(uint64(keyIdx), bytecode.DebugInfo{})
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
		u.chunk.WriteOp(bytecode.OpCONS, bytecode.DebugInfo{})
		u.chunk.WriteOp(bytecode.OpCONS, bytecode.DebugInfo{})
		if err := c.emitNameLoad(u, c.symGet); err != nil {
			return err
		}
		u.chunk.WriteOp(bytecode.OpCALL, bytecode.DebugInfo{})
		u.chunk.WriteU64(2, bytecode.DebugInfo{})
	}
	return nil
}

// compileList compiles a call form or a special form, per §4.7's dispatch
// by head symbol.
func (c *Compiler) compileList(u *unit, expr rt.Value, cons *rt.Cons) error {
	if headSym, ok := cons.Car.Object().(*rt.Symbol); ok {
		switch headSym.ID {
		case c.symDef:
			return c.compileDef(u, cons.Cdr)
		case c.symQuote:
			return c.compileQuote(u, cons.Cdr)
		case c.symQuasiquote:
			return c.compileQuasiquote(u, cons.Cdr)
		case c.symFn, c.symLambda:
			return c.compileFn(u, cons.Cdr)
		case c.symIf:
			return c.compileIf(u, cons.Cdr)
		case c.symDo, c.symProgn:
			return c.compileDo(u, cons.Cdr)
		case c.symTry:
			return c.compileTry(u, cons.Cdr)
		}
		if c.macros != nil {
			if macro, ok := c.macros.LookupMacro(u.mod, cons.Car); ok {
				expanded, err := c.macros.RunMacro(macro, cons.Cdr)
				if err != nil {
					return err
				}
				return c.compileExpr(u, expanded)
			}
		}
	}
	return c.compileCall(u, cons.Car, cons.Cdr)
}

// compileCall emits §4.7's calling convention: build the argument list,
// push the callee lambda, then CALL. args-list is constructed with CONS
// from the end so it reads in source order once built.
func (c *Compiler) compileCall(u *unit, calleeExpr, argList rt.Value) error {
	args, ok := rt.ToSlice(argList)
	if !ok {
		return cedarerr.New(cedarerr.KindCompile, "call argument list must be a proper list")
	}
	if err := c.emitArgList(u, args, 0); err != nil {
		return err
	}
	if err := c.compileExpr(u, calleeExpr); err != nil {
		return err
	}
	u.chunk.WriteOp(bytecode.OpCALL, bytecode.DebugInfo{})
	u.chunk.WriteU64(uint64(len(args)), bytecode.DebugInfo{})
	return nil
}

// emitArgList recursively compiles args[idx:] and conses them into a
// list value, leaving the list on top of the stack: compile args[idx]
// (pushes the car), recurse for the rest (pushes the cdr), then CONS.
func (c *Compiler) emitArgList(u *unit, args []rt.Value, idx int) error {
	if idx == len(args) {
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
		return nil
	}
	if err := c.compileExpr(u, args[idx]); err != nil {
		return err
	}
	if err := c.emitArgList(u, args, idx+1); err != nil {
		return err
	}
	u.chunk.WriteOp(bytecode.OpCONS, bytecode.DebugInfo{})
	return nil
}

// splitDotted splits a symbol's text on '.' when it contains more than
// one segment (numeric literals never reach here: the reader already
// converts them to Int/Float values before the compiler sees them).
func splitDotted(name string) ([]string, bool) {
	if name == "." || name == "" {
		return nil, false
	}
	var parts []string
	start := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			if i == start {
				return nil, false
			}
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	if start >= len(name) {
		return nil, false
	}
	parts = append(parts, name[start:])
	return parts, true
}
