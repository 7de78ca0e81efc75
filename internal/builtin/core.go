package builtin

import (
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// registerCore installs the primitives the compiler and reader assume are
// always bound in the global scope: arithmetic, comparison, the cons/
// first/rest sequence operations, concat (the one the compiler's
// unquote-splicing expansion calls directly, see compiler/special.go's
// quasiWalk), equality/hash, and str/repr/print.
func registerCore(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	def(reg, t, mod, "+", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		return foldArith(reg, d, "+", args, rt.Add, rt.Int(0))
	})
	def(reg, t, mod, "-", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("-", args, 1, -1); err != nil {
			return rt.Nil, err
		}
		if len(args) == 1 {
			return rt.Sub(reg, d, rt.Int(0), args[0])
		}
		return foldArithFrom(reg, d, args[0], args[1:], rt.Sub)
	})
	def(reg, t, mod, "*", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		return foldArith(reg, d, "*", args, rt.Mul, rt.Int(1))
	})
	def(reg, t, mod, "/", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("/", args, 1, -1); err != nil {
			return rt.Nil, err
		}
		if len(args) == 1 {
			return rt.Div(reg, d, rt.Int(1), args[0])
		}
		return foldArithFrom(reg, d, args[0], args[1:], rt.Div)
	})

	def(reg, t, mod, "=", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("=", args, 2, -1); err != nil {
			return rt.Nil, err
		}
		for i := 1; i < len(args); i++ {
			if !rt.Equal(reg, args[i-1], args[i]) {
				return rt.Nil, nil
			}
		}
		return rt.Int(1), nil
	})
	def(reg, t, mod, "<", compareChain(t, func(c int) bool { return c < 0 }))
	def(reg, t, mod, ">", compareChain(t, func(c int) bool { return c > 0 }))
	def(reg, t, mod, "<=", compareChain(t, func(c int) bool { return c <= 0 }))
	def(reg, t, mod, ">=", compareChain(t, func(c int) bool { return c >= 0 }))

	def(reg, t, mod, "cons", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("cons", args, 2); err != nil {
			return rt.Nil, err
		}
		return rt.MakeCons(reg, args[0], args[1]), nil
	})
	def(reg, t, mod, "first", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("first", args, 1); err != nil {
			return rt.Nil, err
		}
		return rt.First(reg, d, args[0])
	})
	def(reg, t, mod, "rest", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("rest", args, 1); err != nil {
			return rt.Nil, err
		}
		return rt.Rest(reg, d, args[0])
	})

	// concat is a hard dependency of the compiler: `,@x` inside a
	// quasiquote compiles to a call to this exact name (see
	// compiler/special.go's quasiWalk/emitCallGlobal).
	def(reg, t, mod, "concat", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		var all []rt.Value
		for _, a := range args {
			switch {
			case a.IsNil():
				// nothing to splice
			default:
				switch o := a.Object().(type) {
				case *rt.Cons:
					vals, ok := rt.ToSlice(a)
					if !ok {
						return rt.Nil, cedarerr.New(cedarerr.KindType, "concat: improper list argument")
					}
					all = append(all, vals...)
				case *rt.Vector:
					for i := 0; i < o.Len(); i++ {
						all = append(all, o.Get(i))
					}
				default:
					return rt.Nil, cedarerr.New(cedarerr.KindType, "concat: argument is not a sequence")
				}
			}
		}
		return rt.List(reg, all...), nil
	})

	def(reg, t, mod, "list", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		return rt.List(reg, args...), nil
	})
	def(reg, t, mod, "not", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("not", args, 1); err != nil {
			return rt.Nil, err
		}
		if args[0].IsNil() {
			return rt.Int(1), nil
		}
		return rt.Nil, nil
	})

	def(reg, t, mod, "hash", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("hash", args, 1); err != nil {
			return rt.Nil, err
		}
		h, err := rt.Hash(reg, d, args[0])
		return rt.Int(int64(h)), err
	})

	def(reg, t, mod, "str", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		p, ok := d.(Printer)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindRuntime, "str: no renderer installed")
		}
		var sb []byte
		for _, a := range args {
			sb = append(sb, p.Str(a)...)
		}
		return rt.Obj(rt.NewStr(reg, string(sb))), nil
	})
	def(reg, t, mod, "repr", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("repr", args, 1); err != nil {
			return rt.Nil, err
		}
		p, ok := d.(Printer)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindRuntime, "repr: no renderer installed")
		}
		return rt.Obj(rt.NewStr(reg, p.Repr(args[0]))), nil
	})
	def(reg, t, mod, "print", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		p, ok := d.(Printer)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindRuntime, "print: no renderer installed")
		}
		for i, a := range args {
			if i > 0 {
				printOut(" ")
			}
			printOut(p.Str(a))
		}
		printOut("\n")
		return rt.Nil, nil
	})

	def(reg, t, mod, "class", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("class", args, 1); err != nil {
			return rt.Nil, err
		}
		return rt.Obj(rt.TypeOf(reg, args[0])), nil
	})
	def(reg, t, mod, "get-field", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("get-field", args, 2); err != nil {
			return rt.Nil, err
		}
		typ, ok := args[0].Object().(*rt.Type)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "get-field expects a type")
		}
		sym, ok := args[1].Object().(*rt.Symbol)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "get-field expects a symbol key")
		}
		v, ok := typ.Lookup(sym.ID)
		if !ok {
			return rt.Nil, nil
		}
		return v, nil
	})
	def(reg, t, mod, "set-field", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("set-field", args, 3); err != nil {
			return rt.Nil, err
		}
		typ, ok := args[0].Object().(*rt.Type)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "set-field expects a type")
		}
		sym, ok := args[1].Object().(*rt.Symbol)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "set-field expects a symbol key")
		}
		typ.SetField(sym.ID, args[2])
		return args[2], nil
	})
	def(reg, t, mod, "add-parent", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("add-parent", args, 2); err != nil {
			return rt.Nil, err
		}
		typ, ok := args[0].Object().(*rt.Type)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "add-parent expects a type")
		}
		parent, ok := args[1].Object().(*rt.Type)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "add-parent expects a type")
		}
		typ.AddParent(parent)
		return args[0], nil
	})
	def(reg, t, mod, "get-parents", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("get-parents", args, 1); err != nil {
			return rt.Nil, err
		}
		typ, ok := args[0].Object().(*rt.Type)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "get-parents expects a type")
		}
		parents := typ.GetParents()
		vals := make([]rt.Value, len(parents))
		for i, p := range parents {
			vals[i] = rt.Obj(p)
		}
		return rt.List(reg, vals...), nil
	})
	def(reg, t, mod, "make-type", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("make-type", args, 1); err != nil {
			return rt.Nil, err
		}
		s, err := wantStr("make-type", args[0])
		if err != nil {
			return rt.Nil, err
		}
		typ := reg.NewUserType(s.S)
		reg.RegisterUserType(typ)
		return rt.Obj(typ), nil
	})
}

func printOut(s string) {
	osWrite(s)
}

func compareChain(t *intern.Table, ok func(int) bool) rt.NativeFunc {
	return func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("compare", args, 2, -1); err != nil {
			return rt.Nil, err
		}
		for i := 1; i < len(args); i++ {
			c, err := rt.Compare(reg, d, args[i-1], args[i])
			if err != nil {
				return rt.Nil, err
			}
			if !ok(c) {
				return rt.Nil, nil
			}
		}
		return rt.Int(1), nil
	}
}

type arithOp func(reg *rt.Registry, d rt.Dispatcher, a, b rt.Value) (rt.Value, error)

func foldArith(reg *rt.Registry, d rt.Dispatcher, name string, args []rt.Value, op arithOp, identity rt.Value) (rt.Value, error) {
	if len(args) == 0 {
		return identity, nil
	}
	return foldArithFrom(reg, d, args[0], args[1:], op)
}

func foldArithFrom(reg *rt.Registry, d rt.Dispatcher, first rt.Value, rest []rt.Value, op arithOp) (rt.Value, error) {
	acc := first
	var err error
	for _, v := range rest {
		acc, err = op(reg, d, acc, v)
		if err != nil {
			return rt.Nil, err
		}
	}
	return acc, nil
}
