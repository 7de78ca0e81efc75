package builtin

import (
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
	"github.com/cedar-lang/cedar/internal/scheduler"
)

// Register installs every native binding this distribution ships into
// core: the language primitives the compiler/reader assume exist, plus
// the domain modules (math, os, stringutil, bits, tcp, serialize,
// dynload, fiber/channel concurrency) named in §1/§2. scriptArgs backs
// `os/args`; sched backs `go*`/`join`/the scheduler diagnostics bindings;
// loader backs `import` (nil disables it, e.g. for a test harness that
// has no filesystem module tree to resolve against).
func Register(reg *rt.Registry, interner *intern.Table, core *rt.Module, sched *scheduler.Runtime, scriptArgs []string, loader ModuleLoader) {
	registerCore(reg, interner, core)
	registerSeq(reg, interner, core)
	registerOS(reg, interner, core, scriptArgs)
	registerStringutil(reg, interner, core)
	registerMath(reg, interner, core)
	registerBits(reg, interner, core)
	registerConcurrency(reg, interner, core, sched)
	registerTCP(reg, interner, core)
	registerSerialize(reg, interner, core)
	registerDynload(reg, interner, core)
	if loader != nil {
		registerImport(reg, interner, core, loader)
	}
}
