// Package modloader implements §6's module resolution: given a name N,
// search CEDARPATH (or the default list) for N/main.cdr, then N, then
// N.cdr, load the first match once, and cache it keyed by absolute path
// so re-importing the same module returns the same *rt.Module instance
// (important for §5's "intern table and type registry" sharing and for
// def/redef visibility across importers).
package modloader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/compiler"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/reader"
	"github.com/cedar-lang/cedar/internal/rt"
)

// DefaultPath is the search list used when CEDARPATH is unset.
var DefaultPath = []string{".", "/usr/local/lib/cedar", "~/.local/lib/cedar"}

// Runner applies a compiled top-level lambda to drive module
// initialization; *vm.VM satisfies this without modloader importing vm
// directly (this mirrors the Dispatcher/MacroRunner inversions used
// elsewhere in this codebase).
type Runner interface {
	Apply(lam *rt.Lambda, args []rt.Value) (rt.Value, error)
}

// Loader resolves and caches modules by absolute file path.
type Loader struct {
	reg      *rt.Registry
	interner *intern.Table
	comp     *compiler.Compiler
	run      Runner
	path     []string

	cache map[string]*rt.Module
}

// New builds a Loader. path is the CEDARPATH search list (already split
// on ':'); pass nil to use DefaultPath.
func New(reg *rt.Registry, interner *intern.Table, comp *compiler.Compiler, run Runner, path []string) *Loader {
	if len(path) == 0 {
		path = DefaultPath
	}
	return &Loader{reg: reg, interner: interner, comp: comp, run: run, path: path, cache: map[string]*rt.Module{}}
}

// PathFromEnv splits a CEDARPATH value on ':', falling back to
// DefaultPath when empty.
func PathFromEnv(cedarpath string) []string {
	if cedarpath == "" {
		return DefaultPath
	}
	return strings.Split(cedarpath, ":")
}

// candidates lists the three file shapes §6 names for a module name N,
// in search order: N/main.cdr, N, N.cdr.
func candidates(dir, name string) []string {
	return []string{
		filepath.Join(dir, name, "main.cdr"),
		filepath.Join(dir, name),
		filepath.Join(dir, name+".cdr"),
	}
}

// Resolve finds the first file matching name across the search path,
// without loading it.
func (l *Loader) Resolve(name string) (string, error) {
	for _, dir := range l.path {
		dir = expandHome(dir)
		for _, cand := range candidates(dir, name) {
			if info, err := os.Stat(cand); err == nil && !info.IsDir() {
				abs, aerr := filepath.Abs(cand)
				if aerr != nil {
					return "", cedarerr.Wrap(aerr, cedarerr.KindImport, "resolving module %s", name)
				}
				return abs, nil
			}
		}
	}
	return "", cedarerr.New(cedarerr.KindImport, "module %s not found on CEDARPATH", name)
}

// Load resolves name, compiles and runs it if not already cached, and
// returns the resulting module. A module is loaded and initialized at
// most once per absolute path, regardless of how many importers ask for
// it.
func (l *Loader) Load(name string) (*rt.Module, error) {
	abs, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	if mod, ok := l.cache[abs]; ok {
		return mod, nil
	}

	src, rerr := os.ReadFile(abs)
	if rerr != nil {
		return nil, cedarerr.Wrap(rerr, cedarerr.KindImport, "reading module %s", abs)
	}

	mod := rt.NewModule(name, l.reg)
	mod.File = abs
	rt.SetAttr(mod, l.interner.Intern("*file*"), rt.Obj(rt.NewStr(l.reg, abs)))
	// Publish into the cache before running the body: a module that
	// imports itself transitively (a cycle) observes the in-progress,
	// partially-bound module rather than recursing forever.
	l.cache[abs] = mod

	rd := reader.New(l.reg, l.interner, abs, string(src))
	forms, frerr := rd.ReadAll()
	if frerr != nil {
		return nil, cedarerr.Wrap(frerr, cedarerr.KindImport, "reading module %s", abs)
	}
	top, cerr := l.comp.CompileTopLevel(forms, mod)
	if cerr != nil {
		return nil, cerr
	}
	if _, aerr := l.run.Apply(top, nil); aerr != nil {
		return nil, aerr
	}
	return mod, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
