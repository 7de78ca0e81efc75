package builtin

import (
	stdmath "math"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// registerMath installs the `math` module, a thin layer over the standard
// library's math package for the transcendental functions cedar source
// has no operator syntax for.
func registerMath(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	unary := map[string]func(float64) float64{
		"math/sqrt":  stdmath.Sqrt,
		"math/sin":   stdmath.Sin,
		"math/cos":   stdmath.Cos,
		"math/tan":   stdmath.Tan,
		"math/log":   stdmath.Log,
		"math/exp":   stdmath.Exp,
		"math/floor": stdmath.Floor,
		"math/ceil":  stdmath.Ceil,
		"math/abs":   stdmath.Abs,
	}
	for name, fn := range unary {
		fn := fn
		name := name
		def(reg, t, mod, name, func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
			if err := arity(name, args, 1); err != nil {
				return rt.Nil, err
			}
			f, ok := args[0].AsFloat64()
			if !ok {
				return rt.Nil, cedarerr.New(cedarerr.KindType, "%s expects a number", name)
			}
			return rt.Float(fn(f)), nil
		})
	}
	def(reg, t, mod, "math/pow", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("math/pow", args, 2); err != nil {
			return rt.Nil, err
		}
		base, ok1 := args[0].AsFloat64()
		exp, ok2 := args[1].AsFloat64()
		if !ok1 || !ok2 {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "math/pow expects two numbers")
		}
		return rt.Float(stdmath.Pow(base, exp)), nil
	})
	def(reg, t, mod, "math/max", minmax(func(a, b float64) bool { return a > b }))
	def(reg, t, mod, "math/min", minmax(func(a, b float64) bool { return a < b }))
	mod.Def(t.Intern("math/pi"), rt.Float(stdmath.Pi))
}

func minmax(better func(a, b float64) bool) rt.NativeFunc {
	return func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("math/max-min", args, 1, -1); err != nil {
			return rt.Nil, err
		}
		best := args[0]
		bestF, ok := best.AsFloat64()
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "math/max-min expects numbers")
		}
		for _, v := range args[1:] {
			f, ok := v.AsFloat64()
			if !ok {
				return rt.Nil, cedarerr.New(cedarerr.KindType, "math/max-min expects numbers")
			}
			if better(f, bestF) {
				best, bestF = v, f
			}
		}
		return best, nil
	}
}
