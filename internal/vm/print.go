package vm

import (
	"fmt"
	"strings"

	"github.com/cedar-lang/cedar/internal/rt"
)

// Str renders v the way cedar's `str` builtin does: human-readable, no
// reader-round-trip guarantee (e.g. strings print without surrounding
// quotes). Repr renders the reader-round-trippable form (quotes included),
// covering every core data kind: numbers, strings, symbols, keywords,
// lists, vectors, dicts, lambdas, types, modules, fibers, and channels.
func (vm *VM) Str(v rt.Value) string {
	return vm.render(v, false)
}

func (vm *VM) Repr(v rt.Value) string {
	return vm.render(v, true)
}

func (vm *VM) render(v rt.Value, repr bool) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsInt():
		i, _ := v.AsInt()
		return fmt.Sprintf("%d", i)
	case v.IsFloat():
		f, _ := v.AsFloat()
		return fmt.Sprintf("%g", f)
	}
	switch o := v.Object().(type) {
	case *rt.Str:
		if repr {
			return fmt.Sprintf("%q", o.S)
		}
		return o.S
	case *rt.Symbol:
		return o.Name(vm.interner)
	case *rt.Keyword:
		return ":" + o.Name(vm.interner)
	case *rt.Cons:
		return vm.renderList(v, repr)
	case *rt.Vector:
		var sb strings.Builder
		sb.WriteByte('[')
		for i := 0; i < o.Len(); i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(vm.render(o.Get(i), repr))
		}
		sb.WriteByte(']')
		return sb.String()
	case *rt.Dict:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range o.Keys() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			val, _, _ := o.Get(vm.reg, vm, k)
			sb.WriteString(vm.render(k, repr))
			sb.WriteByte(' ')
			sb.WriteString(vm.render(val, repr))
		}
		sb.WriteByte('}')
		return sb.String()
	case *rt.Lambda:
		if o.IsNative() {
			return fmt.Sprintf("<native-fn %s>", o.Name)
		}
		return fmt.Sprintf("<fn %s>", o.Name)
	case *rt.Type:
		return fmt.Sprintf("<type %s>", o.Name())
	case *rt.Module:
		return fmt.Sprintf("<module %s>", o.Name)
	case *rt.Fiber:
		return "<fiber>"
	case *rt.ChannelData:
		return "<channel>"
	default:
		if o == nil {
			return "nil"
		}
		return fmt.Sprintf("<object %T>", o)
	}
}

func (vm *VM) renderList(v rt.Value, repr bool) string {
	var sb strings.Builder
	sb.WriteByte('(')
	first := true
	for {
		cons, ok := v.Object().(*rt.Cons)
		if !ok {
			if !v.IsNil() {
				sb.WriteString(" . ")
				sb.WriteString(vm.render(v, repr))
			}
			break
		}
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(vm.render(cons.Car, repr))
		v = cons.Cdr
	}
	sb.WriteByte(')')
	return sb.String()
}
