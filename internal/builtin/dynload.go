package builtin

import (
	"plugin"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// registerDynload installs the `dynload` module named in §1's library
// list: loading a compiled Go plugin (a .so built with `go build
// -buildmode=plugin`) and binding one of its exported NativeFunc-shaped
// symbols into the calling module under a chosen name. The standard
// library's plugin package is the natural fit here — dynamic loading of
// native code is an OS-level concern the examples have no third-party
// wrapper for, so this one binding stays on stdlib by necessity rather
// than by default.
func registerDynload(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	def(reg, t, mod, "dynload/open", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("dynload/open", args, 3); err != nil {
			return rt.Nil, err
		}
		path, err := wantStr("dynload/open", args[0])
		if err != nil {
			return rt.Nil, err
		}
		symName, err := wantStr("dynload/open", args[1])
		if err != nil {
			return rt.Nil, err
		}
		bindName, err := wantStr("dynload/open", args[2])
		if err != nil {
			return rt.Nil, err
		}
		p, perr := plugin.Open(path.S)
		if perr != nil {
			return rt.Nil, cedarerr.Wrap(perr, cedarerr.KindImport, "dynload/open: %s", path.S)
		}
		sym, lerr := p.Lookup(symName.S)
		if lerr != nil {
			return rt.Nil, cedarerr.Wrap(lerr, cedarerr.KindImport, "dynload/open: symbol %s", symName.S)
		}
		fn, ok := sym.(func(*rt.Registry, rt.Dispatcher, *rt.Fiber, []rt.Value) (rt.Value, error))
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindImport, "dynload/open: symbol %s is not a native binding", symName.S)
		}
		def(reg, t, mod, bindName.S, rt.NativeFunc(fn))
		return rt.Nil, nil
	})
}
