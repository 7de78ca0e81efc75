package builtin

import (
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// ModuleLoader is satisfied by *modloader.Loader. It lives here (rather
// than importing internal/modloader directly) so this package's other
// registerX functions stay usable without pulling in the loader, reader,
// and compiler packages for callers that don't need module resolution
// (a test exercising just the arithmetic bindings, say).
type ModuleLoader interface {
	Load(name string) (*rt.Module, error)
}

// registerImport installs `import`, resolving a module by name (§6's
// CEDARPATH search) and binding its public names into the importing
// module, per §3.8's import semantics.
func registerImport(reg *rt.Registry, t *intern.Table, mod *rt.Module, loader ModuleLoader) {
	def(reg, t, mod, "import", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("import", args, 1); err != nil {
			return rt.Nil, err
		}
		name, err := wantStr("import", args[0])
		if err != nil {
			return rt.Nil, err
		}
		imported, lerr := loader.Load(name.S)
		if lerr != nil {
			return rt.Nil, cedarerr.Wrap(lerr, cedarerr.KindImport, "import %s", name.S)
		}
		// The importer is whichever module's code is running `import`,
		// not the module this native happens to be bound in: natives run
		// without pushing their own frame, so the caller's frame is still
		// the fiber's current one.
		importer := mod
		if fiber != nil && fiber.Frame != nil && fiber.Frame.Lambda != nil && fiber.Frame.Lambda.Module != nil {
			importer = fiber.Frame.Lambda.Module
		}
		imported.ImportInto(importer)
		return rt.Obj(imported), nil
	})
}
