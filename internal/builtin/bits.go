package builtin

import (
	"golang.org/x/exp/constraints"

	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// clampShift bounds a shift amount to [0, width] so bits/shift-left and
// bits/shift-right never hand Go's << / >> a negative or oversized count
// (a negative shift count panics; §4's bitwise ops should saturate to 0
// instead of crashing the fiber).
func clampShift[T constraints.Integer](n T, width T) T {
	if n < 0 {
		return 0
	}
	if n > width {
		return width
	}
	return n
}

// registerBits installs the `bits` module: bitwise integer operations the
// core `+`/`-`/`*`/`/` arithmetic has no operator syntax for.
func registerBits(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	binary := map[string]func(a, b int64) int64{
		"bits/and":         func(a, b int64) int64 { return a & b },
		"bits/or":          func(a, b int64) int64 { return a | b },
		"bits/xor":         func(a, b int64) int64 { return a ^ b },
		"bits/shift-left":  func(a, b int64) int64 { return a << uint(clampShift(b, int64(63))) },
		"bits/shift-right": func(a, b int64) int64 { return a >> uint(clampShift(b, int64(63))) },
	}
	for name, fn := range binary {
		fn := fn
		name := name
		def(reg, t, mod, name, func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
			if err := arity(name, args, 2); err != nil {
				return rt.Nil, err
			}
			a, err := wantInt(name, args[0])
			if err != nil {
				return rt.Nil, err
			}
			b, err := wantInt(name, args[1])
			if err != nil {
				return rt.Nil, err
			}
			return rt.Int(fn(a, b)), nil
		})
	}
	def(reg, t, mod, "bits/not", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("bits/not", args, 1); err != nil {
			return rt.Nil, err
		}
		a, err := wantInt("bits/not", args[0])
		if err != nil {
			return rt.Nil, err
		}
		return rt.Int(^a), nil
	})
}
