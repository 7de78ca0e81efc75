// Package vm implements C8: a threaded-dispatch bytecode stack machine
// executing the chunks the compiler produces. A switch-dispatch fetch/
// decode/execute loop operates on a Fiber's operand stack and call frames
// over cedar's small stack-machine opcode set (OpCode.String in
// internal/bytecode is the closed list this loop switches over).
package vm

import (
	"github.com/cedar-lang/cedar/internal/bytecode"
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// VM ties the type registry, the intern table, and the core module
// together with the dispatch loop itself. One VM serves every fiber the
// scheduler runs; fibers carry all of the loop's mutable per-call state so
// a VM value has no execution state of its own between calls.
type VM struct {
	reg      *rt.Registry
	interner *intern.Table
	core     *rt.Module
}

// New builds a VM bound to reg/interner/core. reg.Interner must be interner.
func New(reg *rt.Registry, interner *intern.Table, core *rt.Module) *VM {
	return &VM{reg: reg, interner: interner, core: core}
}

// Registry and Interner expose the VM's bound registry/interner to callers
// (builtins, the reader-eval-print loop) that need them to construct values.
func (vm *VM) Registry() *rt.Registry   { return vm.reg }
func (vm *VM) Interner() *intern.Table  { return vm.interner }
func (vm *VM) CoreModule() *rt.Module   { return vm.core }

// runSignal is how the inner opcode loop tells Run what happened without
// allocating an error for the common cases.
type runSignal int

const (
	sigNone runSignal = iota
	sigReturn
	sigYield
)

// Run drives fiber to completion or to its next yield point, starting (or
// resuming) at fiber.Frame. It returns once the fiber is Done or has
// voluntarily yielded (yield hook returned true at a back edge, or a sleep
// was requested). yield may be nil, meaning never preempt on a timeslice —
// the caller of a synchronous Apply passes nil since a throwaway fiber has
// no scheduler identity to yield to. A single *VM carries no per-run state
// of its own, so the same VM may be driven concurrently by several
// scheduler goroutines, each passing its own yield closure.
func (vm *VM) Run(fiber *rt.Fiber, yield func() bool) error {
	sig, err := vm.step(fiber, yield)
	if err != nil {
		fiber.Finish(rt.Nil, err)
		return err
	}
	_ = sig
	return nil
}

// step executes instructions in the current frame until the fiber
// completes, yields (yield hook returned true, or a sleep was requested),
// or an unhandled error propagates past the outermost frame. Errors are
// resolved against each frame's TryRegions table as they are raised
// (§4.8): a handled error resumes execution at the handler and never
// reaches this function's return path at all.
func (vm *VM) step(fiber *rt.Fiber, yield func() bool) (runSignal, error) {
	for {
		frame := fiber.Frame
		if frame == nil {
			return sigReturn, nil
		}
		chunk := frame.Lambda.Code.(*bytecode.Chunk)
		if frame.IP >= chunk.Len() {
			// Fell off the end without EXIT/RETURN: treat as returning nil.
			vm.doReturn(fiber, rt.Nil)
			continue
		}
		op := bytecode.OpCode(chunk.Code[frame.IP])
		startIP := frame.IP
		frame.IP++

		// raise reports err as having occurred at startIP in this frame; if
		// some enclosing try/catch handles it, execution resumes there and
		// the caller should `continue` the dispatch loop, else the error
		// propagates out of step entirely.
		raise := func(err error) (bool, error) {
			wrapped := vm.errAt(chunk, startIP, err)
			if vm.unwind(fiber, wrapped) {
				return true, nil
			}
			return false, wrapped
		}

		switch op {
		case bytecode.OpNOP:
			// no-op

		case bytecode.OpNIL:
			fiber.Push(rt.Nil)

		case bytecode.OpCONST:
			idx := chunk.ReadU64(frame.IP)
			frame.IP += 8
			fiber.Push(chunk.Constants[idx].(rt.Value))

		case bytecode.OpFLOAT:
			f := chunk.ReadF64(frame.IP)
			frame.IP += 8
			fiber.Push(rt.Float(f))

		case bytecode.OpINT:
			i := chunk.ReadI64(frame.IP)
			frame.IP += 8
			fiber.Push(rt.Int(i))

		case bytecode.OpLOAD_LOCAL:
			slot := chunk.ReadU64(frame.IP)
			frame.IP += 8
			fiber.Push(frame.Locals[slot].V)

		case bytecode.OpSET_LOCAL:
			slot := chunk.ReadU64(frame.IP)
			frame.IP += 8
			frame.Locals[slot].V = fiber.Peek()

		case bytecode.OpLOAD_GLOBAL:
			idx := chunk.ReadU64(frame.IP)
			frame.IP += 8
			sym := chunk.Constants[idx].(rt.Value).Object().(*rt.Symbol)
			mod := frame.Lambda.Module
			if mod == nil {
				mod = vm.core
			}
			val, ok := mod.Find(sym.ID, mod)
			if !ok {
				val, ok = vm.core.Find(sym.ID, vm.core)
			}
			if !ok {
				if handled, err := raise(cedarerr.New(cedarerr.KindUnbound,
					"unbound symbol: %s", sym.Name(vm.interner))); !handled {
					return 0, err
				}
				continue
			}
			fiber.Push(val)

		case bytecode.OpSET_GLOBAL:
			idx := chunk.ReadU64(frame.IP)
			frame.IP += 8
			sym := chunk.Constants[idx].(rt.Value).Object().(*rt.Symbol)
			mod := frame.Lambda.Module
			if mod == nil {
				mod = vm.core
			}
			mod.Def(sym.ID, fiber.Peek())

		case bytecode.OpCONS:
			b := fiber.Pop()
			a := fiber.Pop()
			fiber.Push(rt.MakeCons(vm.reg, a, b))

		case bytecode.OpCALL:
			argc := chunk.ReadU64(frame.IP)
			frame.IP += 8
			_ = argc
			calleeVal := fiber.Pop()
			argList := fiber.Pop()
			if err := vm.doCall(fiber, calleeVal, argList); err != nil {
				if handled, err := raise(err); !handled {
					return 0, err
				}
				continue
			}
			if fiber.SleepRequest > 0 || (yield != nil && yield()) {
				return sigYield, nil
			}

		case bytecode.OpMAKE_FUNC:
			idx := chunk.ReadU64(frame.IP)
			frame.IP += 8
			template := chunk.Constants[idx].(rt.Value).Object().(*rt.Lambda)
			clone := template.Copy()
			clone.Upvalues = make([]*rt.Cell, len(template.UpvalueSources))
			for i, src := range template.UpvalueSources {
				if src.FromLocal {
					clone.Upvalues[i] = frame.Locals[src.Index]
				} else {
					clone.Upvalues[i] = frame.Lambda.Upvalues[src.Index]
				}
			}
			fiber.Push(rt.Obj(clone))

		case bytecode.OpMAKE_CLOSURE:
			// Re-aliases this call's own Locals slots to the closure
			// instance's captured cells every entry (frame.Locals is a
			// fresh array per call) — it shares the same *Cell each time,
			// it does not reset its contents, so a def inside the body
			// from a prior call is still visible here.
			for i, slot := range frame.Lambda.UpvalueSlots {
				frame.Locals[slot] = frame.Lambda.Upvalues[i]
			}

		case bytecode.OpARG_POP:
			slot := chunk.ReadU64(frame.IP)
			frame.IP += 8
			lam := frame.Lambda
			if lam.Varargs && int(slot) == lam.VarargSlot {
				frame.Locals[slot].V = frame.PendingArgs
				frame.PendingArgs = rt.Nil
				continue
			}
			cons, ok := frame.PendingArgs.Object().(*rt.Cons)
			if !ok {
				if handled, err := raise(cedarerr.New(cedarerr.KindArity,
					"too few arguments to %s", lam.Name)); !handled {
					return 0, err
				}
				continue
			}
			frame.Locals[slot].V = cons.Car
			frame.PendingArgs = cons.Cdr

		case bytecode.OpRETURN:
			result := fiber.Pop()
			vm.doReturn(fiber, result)
			if fiber.SleepRequest > 0 || (yield != nil && yield()) {
				return sigYield, nil
			}

		case bytecode.OpSKIP:
			fiber.Pop()

		case bytecode.OpJMP:
			target := chunk.ReadI32(frame.IP)
			if int(target) <= frame.IP {
				if yield != nil && yield() {
					// Leave frame.IP at startIP (the JMP opcode itself,
					// not past its operand) so resuming re-fetches and
					// re-executes this instruction and actually takes
					// the branch, instead of falling through past it.
					frame.IP = startIP
					return sigYield, nil
				}
			}
			frame.IP = int(target)

		case bytecode.OpJMP_IF_FALSE:
			target := chunk.ReadI32(frame.IP)
			frame.IP += 4
			cond := fiber.Pop()
			if isFalsey(cond) {
				frame.IP = int(target)
			}

		case bytecode.OpEXIT:
			result := fiber.Pop()
			fiber.Frame = nil
			fiber.Finish(result, nil)
			return sigReturn, nil

		default:
			if handled, err := raise(cedarerr.New(cedarerr.KindRuntime, "unknown opcode %s", op)); !handled {
				return 0, err
			}
		}
	}
}

// isFalsey implements §4.1's truthiness: only nil is false.
func isFalsey(v rt.Value) bool { return v.IsNil() }

// doCall implements the calling convention of §4.7: pop the callee and its
// already-built argument list, then either enter a bytecode lambda's frame,
// invoke a native lambda directly, or — when the callee is a Type, per
// §4.3's "(T arg…) performs: allocate via T.__alloc__ ... invoke new" —
// construct an instance, pushing the result in every case.
func (vm *VM) doCall(fiber *rt.Fiber, calleeVal, argList rt.Value) error {
	args, properList := rt.ToSlice(argList)
	if !properList {
		return cedarerr.New(cedarerr.KindArity, "call argument list must be a proper list")
	}
	if typ, ok := calleeVal.Object().(*rt.Type); ok {
		inst, err := typ.New(vm.reg, vm, args)
		if err != nil {
			return err
		}
		fiber.Push(inst)
		return nil
	}
	lam, ok := calleeVal.Object().(*rt.Lambda)
	if !ok {
		return cedarerr.New(cedarerr.KindType, "%s is not callable", rt.TypeOf(vm.reg, calleeVal).Name())
	}
	effective := lam.EffectiveArgs(args)
	if lam.IsNative() {
		result, err := lam.Native(vm.reg, vm, fiber, effective)
		if err != nil {
			return err
		}
		fiber.Push(result)
		return nil
	}
	if !lam.Varargs && len(effective) != lam.ArgCount {
		return cedarerr.New(cedarerr.KindArity, "%s expects %d argument(s), got %d", lam.Name, lam.ArgCount, len(effective))
	}
	if lam.Varargs && len(effective) < lam.ArgCount {
		return cedarerr.New(cedarerr.KindArity, "%s expects at least %d argument(s), got %d", lam.Name, lam.ArgCount, len(effective))
	}
	rebuilt := rt.List(vm.reg, effective...)
	fiber.PushFrame(lam, len(fiber.Stack), rebuilt)
	return nil
}

// doReturn pops the current frame and pushes result onto the caller's
// stack, or finishes the fiber if that was the outermost frame.
func (vm *VM) doReturn(fiber *rt.Fiber, result rt.Value) {
	fiber.PopFrame()
	if fiber.Frame == nil {
		fiber.Finish(result, nil)
		return
	}
	fiber.Push(result)
}

// unwind implements §4.8: walking from the currently executing frame
// outward through its callers, each frame's own IP (the position right
// after the instruction that raised or propagated the error — a CALL, for
// every frame but the innermost) is checked against that frame's
// TryRegions. The first match wins: intervening frames are discarded,
// fiber.Frame becomes the handling frame, and its IP jumps to the
// handler with the error value bound in the handler's slot. Returns false
// if no enclosing frame has a handler, leaving fiber.Frame untouched so
// the caller can report the error with the deepest frame still attached.
func (vm *VM) unwind(fiber *rt.Fiber, err error) bool {
	for frame := fiber.Frame; frame != nil; frame = frame.Parent {
		chunk := frame.Lambda.Code.(*bytecode.Chunk)
		for _, region := range chunk.TryRegions {
			if frame.IP > region.Start && frame.IP <= region.End {
				fiber.Frame = frame
				frame.Locals[region.Slot].V = errorValue(vm.reg, err)
				frame.IP = region.HandlerPC
				return true
			}
		}
	}
	return false
}

// errorValue converts a Go error raised during execution into a cedar
// value bound to a catch clause's name, per §4.8.
func errorValue(reg *rt.Registry, err error) rt.Value {
	if ce, ok := err.(*cedarerr.Error); ok {
		return rt.Obj(rt.NewStr(reg, ce.Message))
	}
	return rt.Obj(rt.NewStr(reg, err.Error()))
}

// errAt attaches the failing instruction's debug info to err, wrapping it
// in a cedarerr.Error if it is not already one.
func (vm *VM) errAt(chunk *bytecode.Chunk, ip int, err error) error {
	if err == nil {
		return nil
	}
	ce, ok := err.(*cedarerr.Error)
	if !ok {
		ce = cedarerr.Wrap(err, cedarerr.KindRuntime, "%s", err.Error())
	}
	info := chunk.GetDebugInfo(ip)
	return ce.At(info.File, info.Line, info.Column)
}
