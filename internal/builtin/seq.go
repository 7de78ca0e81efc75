package builtin

import (
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// registerSeq installs the indexed-collection surface (vector, dict,
// string) that dispatches through rt.Indexable plus the handful of
// constructors/predicates a program needs to build and inspect them.
func registerSeq(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	def(reg, t, mod, "get", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("get", args, 2); err != nil {
			return rt.Nil, err
		}
		return idxGet(reg, d, args[0], args[1])
	})
	def(reg, t, mod, "set", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("set", args, 3); err != nil {
			return rt.Nil, err
		}
		idx, ok := args[0].Object().(rt.Indexable)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "set: %s is not indexable", rt.TypeOf(reg, args[0]).Name())
		}
		return idx.IdxSet(reg, d, args[1], args[2])
	})
	def(reg, t, mod, "push", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("push", args, 2); err != nil {
			return rt.Nil, err
		}
		idx, ok := args[0].Object().(rt.Indexable)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "push: %s is not indexable", rt.TypeOf(reg, args[0]).Name())
		}
		return idx.IdxAppend(reg, args[1]), nil
	})
	def(reg, t, mod, "size", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("size", args, 1); err != nil {
			return rt.Nil, err
		}
		if s, ok := args[0].Object().(*rt.Str); ok {
			return rt.Int(int64(s.Size())), nil
		}
		idx, ok := args[0].Object().(rt.Indexable)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "size: %s has no size", rt.TypeOf(reg, args[0]).Name())
		}
		return rt.Int(int64(idx.IdxSize())), nil
	})

	def(reg, t, mod, "vector", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		return rt.Obj(rt.NewVector(reg, args...)), nil
	})
	def(reg, t, mod, "pop", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("pop", args, 1); err != nil {
			return rt.Nil, err
		}
		v, ok := args[0].Object().(*rt.Vector)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "pop expects a vector")
		}
		return rt.Obj(v.Pop(reg)), nil
	})
	def(reg, t, mod, "peek", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("peek", args, 1); err != nil {
			return rt.Nil, err
		}
		v, ok := args[0].Object().(*rt.Vector)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "peek expects a vector")
		}
		return v.Peek(), nil
	})

	def(reg, t, mod, "dict", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if len(args)%2 != 0 {
			return rt.Nil, cedarerr.New(cedarerr.KindArity, "dict expects an even number of key/value arguments")
		}
		dd := rt.NewDict()
		dd.Type = reg.DictType
		for i := 0; i < len(args); i += 2 {
			if err := dd.Set(reg, d, args[i], args[i+1]); err != nil {
				return rt.Nil, err
			}
		}
		return rt.Obj(dd), nil
	})
	def(reg, t, mod, "keys", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("keys", args, 1); err != nil {
			return rt.Nil, err
		}
		dd, ok := args[0].Object().(*rt.Dict)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "keys expects a dict")
		}
		return rt.List(reg, dd.Keys()...), nil
	})
	def(reg, t, mod, "vals", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("vals", args, 1); err != nil {
			return rt.Nil, err
		}
		dd, ok := args[0].Object().(*rt.Dict)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "vals expects a dict")
		}
		return rt.List(reg, dd.Values(reg, d)...), nil
	})
	def(reg, t, mod, "has-key?", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("has-key?", args, 2); err != nil {
			return rt.Nil, err
		}
		dd, ok := args[0].Object().(*rt.Dict)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "has-key? expects a dict")
		}
		_, ok, err := dd.Get(reg, d, args[1])
		if err != nil {
			return rt.Nil, err
		}
		if !ok {
			return rt.Nil, nil
		}
		return rt.Int(1), nil
	})
	def(reg, t, mod, "del", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("del", args, 2); err != nil {
			return rt.Nil, err
		}
		dd, ok := args[0].Object().(*rt.Dict)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "del expects a dict")
		}
		return rt.Nil, dd.Delete(reg, d, args[1])
	})
}

func idxGet(reg *rt.Registry, d rt.Dispatcher, recv, key rt.Value) (rt.Value, error) {
	if s, ok := recv.Object().(*rt.Str); ok {
		i, ierr := wantInt("get", key)
		if ierr != nil {
			return rt.Nil, ierr
		}
		r, ok := s.Get(int(i))
		if !ok {
			return rt.Nil, &rt.Err{Kind: "IndexRange", Message: "string index out of range"}
		}
		return rt.Obj(rt.NewStr(reg, r)), nil
	}
	idx, ok := recv.Object().(rt.Indexable)
	if !ok {
		return rt.Nil, cedarerr.New(cedarerr.KindType, "get: %s is not indexable", rt.TypeOf(reg, recv).Name())
	}
	return idx.IdxGet(reg, d, key)
}
