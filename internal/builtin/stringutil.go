package builtin

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// registerStringutil installs the `stringutil` module: the string-specific
// operations layered on top of the core get/size/first/rest sequence
// surface (split/join/case conversion/trim/parse-number).
func registerStringutil(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	def(reg, t, mod, "stringutil/split", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("stringutil/split", args, 2); err != nil {
			return rt.Nil, err
		}
		s, err := wantStr("stringutil/split", args[0])
		if err != nil {
			return rt.Nil, err
		}
		sep, err := wantStr("stringutil/split", args[1])
		if err != nil {
			return rt.Nil, err
		}
		parts := strings.Split(s.S, sep.S)
		vals := make([]rt.Value, len(parts))
		for i, p := range parts {
			vals[i] = rt.Obj(rt.NewStr(reg, p))
		}
		return rt.List(reg, vals...), nil
	})
	def(reg, t, mod, "stringutil/join", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("stringutil/join", args, 2); err != nil {
			return rt.Nil, err
		}
		sep, err := wantStr("stringutil/join", args[1])
		if err != nil {
			return rt.Nil, err
		}
		items, ok := rt.ToSlice(args[0])
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "stringutil/join expects a proper list")
		}
		parts := make([]string, len(items))
		for i, it := range items {
			s, serr := wantStr("stringutil/join", it)
			if serr != nil {
				return rt.Nil, serr
			}
			parts[i] = s.S
		}
		return rt.Obj(rt.NewStr(reg, strings.Join(parts, sep.S))), nil
	})
	def(reg, t, mod, "stringutil/upper", stringMap(strings.ToUpper))
	def(reg, t, mod, "stringutil/lower", stringMap(strings.ToLower))
	def(reg, t, mod, "stringutil/trim", stringMap(strings.TrimSpace))
	def(reg, t, mod, "stringutil/contains?", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("stringutil/contains?", args, 2); err != nil {
			return rt.Nil, err
		}
		s, err := wantStr("stringutil/contains?", args[0])
		if err != nil {
			return rt.Nil, err
		}
		sub, err := wantStr("stringutil/contains?", args[1])
		if err != nil {
			return rt.Nil, err
		}
		if !strings.Contains(s.S, sub.S) {
			return rt.Nil, nil
		}
		return rt.Int(1), nil
	})
	def(reg, t, mod, "stringutil/parse-int", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("stringutil/parse-int", args, 1); err != nil {
			return rt.Nil, err
		}
		s, err := wantStr("stringutil/parse-int", args[0])
		if err != nil {
			return rt.Nil, err
		}
		n, perr := strconv.ParseInt(strings.TrimSpace(s.S), 10, 64)
		if perr != nil {
			return rt.Nil, cedarerr.Wrap(perr, cedarerr.KindType, "stringutil/parse-int: %q is not an integer", s.S)
		}
		return rt.Int(n), nil
	})
	def(reg, t, mod, "stringutil/uuid", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("stringutil/uuid", args, 0); err != nil {
			return rt.Nil, err
		}
		return rt.Obj(rt.NewStr(reg, uuid.NewString())), nil
	})
}

func stringMap(f func(string) string) rt.NativeFunc {
	return func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("stringutil", args, 1); err != nil {
			return rt.Nil, err
		}
		s, err := wantStr("stringutil", args[0])
		if err != nil {
			return rt.Nil, err
		}
		return rt.Obj(rt.NewStr(reg, f(s.S))), nil
	}
}
