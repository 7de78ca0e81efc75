package builtin

import (
	"time"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/channel"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
	"github.com/cedar-lang/cedar/internal/scheduler"
)

// registerConcurrency installs the fiber/channel surface: `go*` to spawn,
// `join` to block for a spawned fiber's result, `channel`/`send`/`recv`/
// `channel-close` for C10's rendezvous/bounded channels, `sleep` for the
// timeslice-respecting nap described on rt.Fiber.SleepRequest, and a
// scheduler diagnostics binding surfacing the job.wait_time/run_count
// accounting named in SPEC_FULL.md's Supplemented Features.
func registerConcurrency(reg *rt.Registry, t *intern.Table, mod *rt.Module, sched *scheduler.Runtime) {
	def(reg, t, mod, "go*", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("go*", args, 1, -1); err != nil {
			return rt.Nil, err
		}
		lam, ok := args[0].Object().(*rt.Lambda)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "go* expects a lambda as its first argument")
		}
		job := sched.Spawn(lam, args[1:])
		return rt.Obj(job.Fiber), nil
	})
	def(reg, t, mod, "join", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("join", args, 1); err != nil {
			return rt.Nil, err
		}
		f, ok := args[0].Object().(*rt.Fiber)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "join expects a fiber")
		}
		result, ferr, found := sched.Join(f)
		if !found {
			return rt.Nil, cedarerr.New(cedarerr.KindRuntime, "join: fiber was not spawned by go*")
		}
		return result, ferr
	})

	def(reg, t, mod, "sleep", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("sleep", args, 1); err != nil {
			return rt.Nil, err
		}
		ms, err := wantInt("sleep", args[0])
		if err != nil {
			return rt.Nil, err
		}
		if fiber == nil {
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return rt.Nil, nil
		}
		fiber.SleepRequest = int64(time.Duration(ms) * time.Millisecond)
		return rt.Nil, nil
	})

	def(reg, t, mod, "channel", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("channel", args, 0, 1); err != nil {
			return rt.Nil, err
		}
		capacity := int64(0)
		if len(args) == 1 {
			var cerr error
			capacity, cerr = wantInt("channel", args[0])
			if cerr != nil {
				return rt.Nil, cerr
			}
		}
		return rt.Obj(rt.NewChannelData(reg, int(capacity))), nil
	})
	def(reg, t, mod, "send", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("send", args, 2); err != nil {
			return rt.Nil, err
		}
		ch, ok := args[0].Object().(*rt.ChannelData)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "send expects a channel")
		}
		if err := channel.Send(ch, args[1]); err != nil {
			return rt.Nil, cedarerr.Wrap(err, cedarerr.KindRuntime, "send on closed channel")
		}
		return rt.Nil, nil
	})
	def(reg, t, mod, "recv", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("recv", args, 1); err != nil {
			return rt.Nil, err
		}
		ch, ok := args[0].Object().(*rt.ChannelData)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "recv expects a channel")
		}
		v, open, err := channel.Recv(ch)
		if err != nil {
			return rt.Nil, cedarerr.Wrap(err, cedarerr.KindRuntime, "recv failed")
		}
		if !open {
			return rt.Nil, nil
		}
		return v, nil
	})
	def(reg, t, mod, "channel-close", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("channel-close", args, 1); err != nil {
			return rt.Nil, err
		}
		ch, ok := args[0].Object().(*rt.ChannelData)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "channel-close expects a channel")
		}
		return rt.Nil, channel.Close(ch)
	})

	def(reg, t, mod, "scheduler/stats", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("scheduler/stats", args, 0); err != nil {
			return rt.Nil, err
		}
		jobs := sched.Jobs()
		dd := rt.NewDict()
		dd.Type = reg.DictType
		if err := dd.Set(reg, d, rt.Obj(rt.NewKeyword(reg, t.Intern("live"))), rt.Int(int64(len(jobs)))); err != nil {
			return rt.Nil, err
		}
		return rt.Obj(dd), nil
	})
	def(reg, t, mod, "fiber-stats", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("fiber-stats", args, 1); err != nil {
			return rt.Nil, err
		}
		f, ok := args[0].Object().(*rt.Fiber)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "fiber-stats expects a fiber")
		}
		dd := rt.NewDict()
		dd.Type = reg.DictType
		fields := []struct {
			key string
			val rt.Value
		}{
			{"run-count", rt.Int(f.RunCount)},
			{"wait-time-nanos", rt.Int(f.WaitTimeNanos)},
			{"done", boolVal(f.Done)},
		}
		for _, fl := range fields {
			if err := dd.Set(reg, d, rt.Obj(rt.NewKeyword(reg, t.Intern(fl.key))), fl.val); err != nil {
				return rt.Nil, err
			}
		}
		return rt.Obj(dd), nil
	})
}

func boolVal(b bool) rt.Value {
	if b {
		return rt.Int(1)
	}
	return rt.Nil
}
