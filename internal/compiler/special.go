package compiler

import (
	"github.com/cedar-lang/cedar/internal/bytecode"
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// compileDef implements `(def name value)` per §4.7: a module-level
// binding when compiled at the top level, a new closure slot when
// compiled inside a function body ("define in enclosing scope or as
// module binding").
func (c *Compiler) compileDef(u *unit, rest rt.Value) error {
	parts, ok := rt.ToSlice(rest)
	if !ok || len(parts) != 2 {
		return cedarerr.New(cedarerr.KindCompile, "def requires exactly a name and a value")
	}
	nameSym, ok := parts[0].Object().(*rt.Symbol)
	if !ok {
		return cedarerr.New(cedarerr.KindCompile, "def name must be a symbol")
	}
	if err := c.compileExpr(u, parts[1]); err != nil {
		return err
	}
	if u.scope.parent == nil {
		idx := u.chunk.AddConstant(rt.Obj(rt.NewSymbol(c.reg, nameSym.ID)))
		u.chunk.WriteOp(bytecode.OpSET_GLOBAL, bytecode.DebugInfo{})
		u.chunk.WriteU64(uint64(idx), bytecode.DebugInfo{})
		return nil
	}
	// A name already bound in this function (as a local or as a captured
	// upvalue) writes through to its existing slot rather than shadowing
	// it with a fresh one — the inner `fn` in `(fn (n) (fn () (def n (+ n
	// 1)) n))` must mutate the captured n itself, not a second binding
	// that the closure's returned value never refers to again (§8 S3).
	slot, ok := u.scope.resolveLocal(nameSym.ID)
	if !ok {
		slot, ok = u.scope.resolveUpvalue(nameSym.ID)
	}
	if !ok {
		slot = u.scope.declareLocal(nameSym.ID)
	}
	u.chunk.WriteOp(bytecode.OpSET_LOCAL, bytecode.DebugInfo{})
	u.chunk.WriteU64(uint64(slot), bytecode.DebugInfo{})
	return nil
}

// compileQuote implements `(quote v)`: v is embedded verbatim as a
// constant, never evaluated.
func (c *Compiler) compileQuote(u *unit, rest rt.Value) error {
	parts, ok := rt.ToSlice(rest)
	if !ok || len(parts) != 1 {
		return cedarerr.New(cedarerr.KindCompile, "quote requires exactly one operand")
	}
	return c.emitLiteral(u, parts[0])
}

func (c *Compiler) emitLiteral(u *unit, v rt.Value) error {
	if v.IsNil() {
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
		return nil
	}
	idx := u.chunk.AddConstant(v)
	u.chunk.WriteOp(bytecode.OpCONST, bytecode.DebugInfo{})
	u.chunk.WriteU64(uint64(idx), bytecode.DebugInfo{})
	return nil
}

// compileQuasiquote implements §4.6/§4.7's quasiquote family: literal
// structure with `unquote` holes evaluated in place and `unquote-splicing`
// holes spliced into the enclosing list. Nested quasiquote (a quasiquote
// inside a quasiquote) is not supported — an edge case no builtin macro
// in this codebase needs.
func (c *Compiler) compileQuasiquote(u *unit, rest rt.Value) error {
	parts, ok := rt.ToSlice(rest)
	if !ok || len(parts) != 1 {
		return cedarerr.New(cedarerr.KindCompile, "quasiquote requires exactly one operand")
	}
	return c.quasiWalk(u, parts[0])
}

func (c *Compiler) quasiWalk(u *unit, v rt.Value) error {
	cons, ok := v.Object().(*rt.Cons)
	if !ok {
		return c.emitLiteral(u, v)
	}
	if headSym, ok := cons.Car.Object().(*rt.Symbol); ok && headSym.ID == c.symUnquote {
		inner, ok := rt.ToSlice(cons.Cdr)
		if !ok || len(inner) != 1 {
			return cedarerr.New(cedarerr.KindCompile, "unquote requires exactly one operand")
		}
		return c.compileExpr(u, inner[0])
	}
	if carCons, ok := cons.Car.Object().(*rt.Cons); ok {
		if headSym, ok := carCons.Car.Object().(*rt.Symbol); ok && headSym.ID == c.symUnquoteSplicing {
			inner, ok := rt.ToSlice(carCons.Cdr)
			if !ok || len(inner) != 1 {
				return cedarerr.New(cedarerr.KindCompile, "unquote-splicing requires exactly one operand")
			}
			return c.emitCallGlobal(u, "concat", []func() error{
				func() error { return c.compileExpr(u, inner[0]) },
				func() error { return c.quasiWalk(u, cons.Cdr) },
			})
		}
	}
	if err := c.quasiWalk(u, cons.Car); err != nil {
		return err
	}
	if err := c.quasiWalk(u, cons.Cdr); err != nil {
		return err
	}
	u.chunk.WriteOp(bytecode.OpCONS, bytecode.DebugInfo{})
	return nil
}

// emitCallGlobal calls a global-by-name function with arguments produced
// by thunks, in order, using the same car-then-cdr-then-CONS arg-list
// convention compileCall uses.
func (c *Compiler) emitCallGlobal(u *unit, name string, thunks []func() error) error {
	var build func(idx int) error
	build = func(idx int) error {
		if idx == len(thunks) {
			u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
			return nil
		}
		if err := thunks[idx](); err != nil {
			return err
		}
		if err := build(idx + 1); err != nil {
			return err
		}
		u.chunk.WriteOp(bytecode.OpCONS, bytecode.DebugInfo{})
		return nil
	}
	if err := build(0); err != nil {
		return err
	}
	idx := u.chunk.AddConstant(rt.Obj(rt.NewSymbol(c.reg, c.interner.Intern(name))))
	u.chunk.WriteOp(bytecode.OpLOAD_GLOBAL, bytecode.DebugInfo{})
	u.chunk.WriteU64(uint64(idx), bytecode.DebugInfo{})
	u.chunk.WriteOp(bytecode.OpCALL, bytecode.DebugInfo{})
	u.chunk.WriteU64(uint64(len(thunks)), bytecode.DebugInfo{})
	return nil
}

// compileIf implements `(if cond then [else])`.
func (c *Compiler) compileIf(u *unit, rest rt.Value) error {
	parts, ok := rt.ToSlice(rest)
	if !ok || (len(parts) != 2 && len(parts) != 3) {
		return cedarerr.New(cedarerr.KindCompile, "if requires a condition, a then-branch, and an optional else-branch")
	}
	if err := c.compileExpr(u, parts[0]); err != nil {
		return err
	}
	u.chunk.WriteOp(bytecode.OpJMP_IF_FALSE, bytecode.DebugInfo{})
	elseJump := u.chunk.WriteI32(0, bytecode.DebugInfo{})

	if err := c.compileExpr(u, parts[1]); err != nil {
		return err
	}
	u.chunk.WriteOp(bytecode.OpJMP, bytecode.DebugInfo{})
	endJump := u.chunk.WriteI32(0, bytecode.DebugInfo{})

	u.chunk.PatchI32(elseJump, int32(u.chunk.Len()))
	if len(parts) == 3 {
		if err := c.compileExpr(u, parts[2]); err != nil {
			return err
		}
	} else {
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
	}
	u.chunk.PatchI32(endJump, int32(u.chunk.Len()))
	return nil
}

// compileDo implements `(do forms...)` / `(progn forms...)`: evaluate in
// order, discarding all but the last value.
func (c *Compiler) compileDo(u *unit, rest rt.Value) error {
	parts, ok := rt.ToSlice(rest)
	if !ok {
		return cedarerr.New(cedarerr.KindCompile, "do/progn body must be a proper list")
	}
	if len(parts) == 0 {
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
		return nil
	}
	for i, f := range parts {
		if err := c.compileExpr(u, f); err != nil {
			return err
		}
		if i < len(parts)-1 {
			u.chunk.WriteOp(bytecode.OpSKIP, bytecode.DebugInfo{})
		}
	}
	return nil
}

// compileTry implements `(try body... (catch err handler...))` per
// §4.8's error-trap unwind contract. There is no TRY opcode; the
// protected range and handler entry point are recorded in the chunk's
// TryRegions table, which the VM consults when an operation raises.
func (c *Compiler) compileTry(u *unit, rest rt.Value) error {
	parts, ok := rt.ToSlice(rest)
	if !ok || len(parts) == 0 {
		return cedarerr.New(cedarerr.KindCompile, "try requires a body and a trailing catch clause")
	}
	catchForm := parts[len(parts)-1]
	catchParts, ok := rt.ToSlice(catchForm)
	if !ok || len(catchParts) < 2 {
		return cedarerr.New(cedarerr.KindCompile, "try's last form must be (catch err body...)")
	}
	catchHead, ok := catchParts[0].Object().(*rt.Symbol)
	if !ok || catchHead.ID != c.symCatch {
		return cedarerr.New(cedarerr.KindCompile, "try's last form must be a catch clause")
	}
	errSym, ok := catchParts[1].Object().(*rt.Symbol)
	if !ok {
		return cedarerr.New(cedarerr.KindCompile, "catch's bound name must be a symbol")
	}
	catchBody := catchParts[2:]
	tryBody := parts[:len(parts)-1]

	startPC := u.chunk.Len()
	if len(tryBody) == 0 {
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
	}
	for i, f := range tryBody {
		if err := c.compileExpr(u, f); err != nil {
			return err
		}
		if i < len(tryBody)-1 {
			u.chunk.WriteOp(bytecode.OpSKIP, bytecode.DebugInfo{})
		}
	}
	endPC := u.chunk.Len()

	u.chunk.WriteOp(bytecode.OpJMP, bytecode.DebugInfo{})
	overCatch := u.chunk.WriteI32(0, bytecode.DebugInfo{})

	handlerPC := u.chunk.Len()
	errSlot := u.scope.declareLocal(errSym.ID)
	if len(catchBody) == 0 {
		u.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
	}
	for i, f := range catchBody {
		if err := c.compileExpr(u, f); err != nil {
			return err
		}
		if i < len(catchBody)-1 {
			u.chunk.WriteOp(bytecode.OpSKIP, bytecode.DebugInfo{})
		}
	}
	u.chunk.PatchI32(overCatch, int32(u.chunk.Len()))

	u.chunk.TryRegions = append(u.chunk.TryRegions, bytecode.TryRegion{
		Start: startPC, End: endPC, HandlerPC: handlerPC, Slot: errSlot,
	})
	return nil
}

// compileFn implements `(fn params body...)` / `(lambda params body...)`
// per §4.7: params is a (possibly dotted) parameter list, a dotted tail
// symbol binding the variadic remainder as a list (§4.5's Lambda
// "prime_args ... excess collected into a list argument").
func (c *Compiler) compileFn(u *unit, rest rt.Value) error {
	parts, ok := rt.ToSlice(rest)
	if !ok || len(parts) < 1 {
		return cedarerr.New(cedarerr.KindCompile, "fn requires a parameter list")
	}
	fixed, vararg, hasVararg, err := parseParams(parts[0])
	if err != nil {
		return err
	}
	bodyForms := parts[1:]

	scope := newFuncScope(u.scope)
	scope.argCount = len(fixed)
	scope.varargs = hasVararg
	for _, id := range fixed {
		scope.declareLocal(id)
	}
	var varargSlot int
	if hasVararg {
		varargSlot = scope.declareLocal(vararg)
	}

	inner := &unit{chunk: bytecode.NewChunk(), scope: scope, mod: u.mod}
	inner.chunk.WriteOp(bytecode.OpMAKE_CLOSURE, bytecode.DebugInfo{})
	for _, id := range fixed {
		slot, _ := scope.resolveLocal(id)
		inner.chunk.WriteOp(bytecode.OpARG_POP, bytecode.DebugInfo{})
		inner.chunk.WriteU64(uint64(slot), bytecode.DebugInfo{})
	}
	if hasVararg {
		inner.chunk.WriteOp(bytecode.OpARG_POP, bytecode.DebugInfo{})
		inner.chunk.WriteU64(uint64(varargSlot), bytecode.DebugInfo{})
	}
	if len(bodyForms) == 0 {
		inner.chunk.WriteOp(bytecode.OpNIL, bytecode.DebugInfo{})
	}
	for i, f := range bodyForms {
		if err := c.compileExpr(inner, f); err != nil {
			return err
		}
		if i < len(bodyForms)-1 {
			inner.chunk.WriteOp(bytecode.OpSKIP, bytecode.DebugInfo{})
		}
	}
	inner.chunk.WriteOp(bytecode.OpRETURN, bytecode.DebugInfo{})
	inner.chunk.StackSize = scope.maxSlot + 16

	template := rt.NewBytecodeLambda(c.reg, "<fn>", inner.chunk, len(fixed), hasVararg, inner.chunk.StackSize, u.mod)
	template.SlotCount = scope.maxSlot
	if hasVararg {
		template.VarargSlot = varargSlot
	}
	template.UpvalueSources = make([]rt.UpvalueSource, len(scope.upvalues))
	template.UpvalueSlots = make([]int, len(scope.upvalues))
	for i, uv := range scope.upvalues {
		template.UpvalueSources[i] = rt.UpvalueSource{FromLocal: uv.fromParentLocal, Index: uv.index}
		template.UpvalueSlots[i] = uv.slot
	}
	idx := u.chunk.AddConstant(rt.Obj(template))
	u.chunk.WriteOp(bytecode.OpMAKE_FUNC, bytecode.DebugInfo{})
	u.chunk.WriteU64(uint64(idx), bytecode.DebugInfo{})
	return nil
}

// parseParams walks a (possibly dotted) parameter list, returning the
// fixed parameter names in order and, if the list's final cdr is a bare
// symbol rather than nil, that symbol as the variadic binding.
func parseParams(params rt.Value) (fixed []intern.ID, vararg intern.ID, hasVararg bool, err error) {
	v := params
	for {
		if v.IsNil() {
			return fixed, 0, false, nil
		}
		cons, ok := v.Object().(*rt.Cons)
		if !ok {
			sym, ok := v.Object().(*rt.Symbol)
			if !ok {
				return nil, 0, false, cedarerr.New(cedarerr.KindCompile, "malformed parameter list")
			}
			return fixed, sym.ID, true, nil
		}
		sym, ok := cons.Car.Object().(*rt.Symbol)
		if !ok {
			return nil, 0, false, cedarerr.New(cedarerr.KindCompile, "parameter names must be symbols")
		}
		fixed = append(fixed, sym.ID)
		v = cons.Cdr
	}
}
