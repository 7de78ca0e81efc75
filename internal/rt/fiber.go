package rt

// Cell is a heap-allocated box for one closure slot. A frame's Locals and
// a closure's captured Upvalues both hold *Cell, not Value, directly: two
// slots that alias the same Cell see each other's writes, which is what
// lets a captured variable observe a later def/SET_LOCAL instead of
// freezing at the moment it was captured (§4.7, §8 P6).
type Cell struct {
	V Value
}

// CallFrame is one activation record in a fiber's call stack (§3.6): the
// lambda being run, its instruction pointer, and the base of its operand
// window within the fiber's shared value stack.
type CallFrame struct {
	Lambda *Lambda
	IP     int
	Base   int
	Locals []*Cell
	Parent *CallFrame

	// PendingArgs is the not-yet-consumed tail of the call's argument
	// list; each ARG_POP (§4.7) pops one element off its front into a
	// declared slot.
	PendingArgs Value
}

// Fiber is a single cooperative thread of execution (§3.6): an operand
// stack, a call-frame chain, and completion state. Fibers never touch OS
// threads directly; the scheduler (C9) decides which fiber runs on which
// goroutine and for how long before yielding at a back-edge.
type Fiber struct {
	ObjHeader

	Stack []Value
	Frame *CallFrame

	Done   bool
	Result Value
	Err    error

	// WaitTimeNanos/RunCount are the supplemented scheduler-accounting
	// fields from §3 Supplemented Features (job.wait_time / job.run_count
	// in the original). The scheduler adds one to RunCount after each
	// timeslice and adds each honored sleep's duration to WaitTimeNanos.
	WaitTimeNanos int64
	RunCount      int64

	// SleepRequest is set by the `sleep` native and cleared by the
	// scheduler once honored (§4.9 ctx.sleep_for); a non-zero value forces
	// the VM to yield back to the scheduler after the next CALL or RETURN
	// regardless of whether the current timeslice has expired.
	SleepRequest int64
}

func NewFiber(reg *Registry) *Fiber {
	return &Fiber{ObjHeader: ObjHeader{Type: reg.FiberType}}
}

func (f *Fiber) Push(v Value) { f.Stack = append(f.Stack, v) }

func (f *Fiber) Pop() Value {
	n := len(f.Stack)
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return v
}

func (f *Fiber) Peek() Value { return f.Stack[len(f.Stack)-1] }

// PushFrame activates a new call frame for l, with argList as the
// not-yet-bound argument list ARG_POP will consume.
func (f *Fiber) PushFrame(l *Lambda, base int, argList Value) {
	slots := l.SlotCount
	if slots < l.ArgCount {
		slots = l.ArgCount
	}
	locals := make([]*Cell, slots)
	for i := range locals {
		locals[i] = &Cell{}
	}
	f.Frame = &CallFrame{Lambda: l, Base: base, Parent: f.Frame, Locals: locals, PendingArgs: argList}
}

// PopFrame discards the current frame, returning to its caller's frame (or
// nil if this was the outermost call).
func (f *Fiber) PopFrame() {
	if f.Frame != nil {
		f.Frame = f.Frame.Parent
	}
}

func (f *Fiber) Finish(result Value, err error) {
	f.Done = true
	f.Result = result
	f.Err = err
}
