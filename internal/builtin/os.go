package builtin

import (
	"bufio"
	"fmt"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

var stdout = bufio.NewWriter(os.Stdout)

// osWrite is the single write path `print` and the `os/write` binding both
// go through, so a REPL session and a script see consistently flushed
// output.
func osWrite(s string) {
	stdout.WriteString(s)
	stdout.Flush()
}

// registerOS installs the `os` module bindings: environment access,
// process args, and a (os/meminfo) diagnostic formatted with
// github.com/dustin/go-humanize the way a REPL status line would show it.
func registerOS(reg *rt.Registry, t *intern.Table, mod *rt.Module, scriptArgs []string) {
	def(reg, t, mod, "os/getenv", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("os/getenv", args, 1); err != nil {
			return rt.Nil, err
		}
		name, err := wantStr("os/getenv", args[0])
		if err != nil {
			return rt.Nil, err
		}
		v, ok := os.LookupEnv(name.S)
		if !ok {
			return rt.Nil, nil
		}
		return rt.Obj(rt.NewStr(reg, v)), nil
	})
	def(reg, t, mod, "os/args", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("os/args", args, 0); err != nil {
			return rt.Nil, err
		}
		vals := make([]rt.Value, len(scriptArgs))
		for i, a := range scriptArgs {
			vals[i] = rt.Obj(rt.NewStr(reg, a))
		}
		return rt.List(reg, vals...), nil
	})
	def(reg, t, mod, "os/write", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("os/write", args, 1); err != nil {
			return rt.Nil, err
		}
		s, err := wantStr("os/write", args[0])
		if err != nil {
			return rt.Nil, err
		}
		osWrite(s.S)
		return rt.Nil, nil
	})
	def(reg, t, mod, "os/exit", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		code := int64(0)
		if len(args) == 1 {
			var err error
			code, err = wantInt("os/exit", args[0])
			if err != nil {
				return rt.Nil, err
			}
		}
		stdout.Flush()
		os.Exit(int(code))
		return rt.Nil, nil
	})
	def(reg, t, mod, "os/meminfo", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("os/meminfo", args, 0); err != nil {
			return rt.Nil, err
		}
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		report := fmt.Sprintf("alloc=%s sys=%s gc-cycles=%d",
			humanize.Bytes(ms.Alloc), humanize.Bytes(ms.Sys), ms.NumGC)
		return rt.Obj(rt.NewStr(reg, report)), nil
	})
	def(reg, t, mod, "os/read-file", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("os/read-file", args, 1); err != nil {
			return rt.Nil, err
		}
		path, err := wantStr("os/read-file", args[0])
		if err != nil {
			return rt.Nil, err
		}
		data, rerr := os.ReadFile(path.S)
		if rerr != nil {
			return rt.Nil, cedarerr.Wrap(rerr, cedarerr.KindRuntime, "os/read-file: %s", path.S)
		}
		return rt.Obj(rt.NewStr(reg, string(data))), nil
	})
}
