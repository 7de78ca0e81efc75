// cmd/cedar/main.go
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/cedar-lang/cedar/internal/builtin"
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/compiler"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/modloader"
	"github.com/cedar-lang/cedar/internal/reader"
	"github.com/cedar-lang/cedar/internal/rt"
	"github.com/cedar-lang/cedar/internal/scheduler"
	"github.com/cedar-lang/cedar/internal/vm"
)

func main() {
	interactive := false
	var exprs []string
	var files []string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h":
			usage()
			return
		case "-i":
			interactive = true
		case "-e":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "cedar: -e requires an argument")
				os.Exit(1)
			}
			exprs = append(exprs, args[i])
		default:
			files = append(files, args[i])
		}
	}

	interner := intern.New()
	reg := rt.NewRegistry(interner)
	core := rt.NewModule("core", reg)
	machine := vm.New(reg, interner, core)
	sched := scheduler.New(machine)
	comp := compiler.New(reg, interner, machine)
	loader := modloader.New(reg, interner, comp, machine, modloader.PathFromEnv(os.Getenv("CEDARPATH")))

	builtin.Register(reg, interner, core, sched, files, loader)

	status := 0
	for _, expr := range exprs {
		if err := evalSource(machine, comp, reg, interner, core, "<expr>", expr); err != nil {
			report(err)
			status = 1
		}
	}
	for _, file := range files {
		src, rerr := os.ReadFile(file)
		if rerr != nil {
			fmt.Fprintf(os.Stderr, "cedar: %v\n", rerr)
			status = 1
			continue
		}
		if err := evalSource(machine, comp, reg, interner, core, file, string(src)); err != nil {
			report(err)
			status = 1
		}
	}

	if interactive || (len(exprs) == 0 && len(files) == 0) {
		runREPL(machine, comp, reg, interner, core)
	}

	os.Exit(status)
}

// evalSource reads, compiles, and runs one source unit to completion on a
// fresh fiber driven directly by the VM (not through the scheduler),
// sleeping in place whenever the fiber requests a sleep: top-level
// scripts run to completion before the process considers the next file,
// matching §6's "evaluated in order" ordering guarantee.
func evalSource(machine *vm.VM, comp *compiler.Compiler, reg *rt.Registry, interner *intern.Table, core *rt.Module, name, src string) error {
	rd := reader.New(reg, interner, name, src)
	forms, err := rd.ReadAll()
	if err != nil {
		return err
	}
	top, err := comp.CompileTopLevel(forms, core)
	if err != nil {
		return err
	}
	fiber := rt.NewFiber(reg)
	fiber.PushFrame(top, 0, rt.Nil)
	for {
		if err := machine.Run(fiber, func() bool { return false }); err != nil {
			return err
		}
		if fiber.Done {
			return nil
		}
		time.Sleep(time.Duration(fiber.SleepRequest))
		fiber.SleepRequest = 0
	}
}

func runREPL(machine *vm.VM, comp *compiler.Compiler, reg *rt.Registry, interner *intern.Table, core *rt.Module) {
	prompt := "cedar> "
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		prompt = ""
	}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if prompt != "" {
			fmt.Print(prompt)
		}
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rd := reader.New(reg, interner, "<repl>", line)
		forms, err := rd.ReadAll()
		if err != nil {
			report(err)
			continue
		}
		top, err := comp.CompileTopLevel(forms, core)
		if err != nil {
			report(err)
			continue
		}
		fiber := rt.NewFiber(reg)
		fiber.PushFrame(top, 0, rt.Nil)
		if err := machine.Run(fiber, func() bool { return false }); err != nil {
			report(err)
			continue
		}
		if !fiber.Result.IsNil() {
			fmt.Println(machine.Repr(fiber.Result))
		}
	}
}

func report(err error) {
	if cerr, ok := err.(*cedarerr.Error); ok {
		fmt.Fprint(os.Stderr, cerr.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "cedar: %v\n", err)
}

func usage() {
	fmt.Println("usage: cedar [-i] [-h] [-e <expr>] [file...]")
	fmt.Println("  -i          enter interactive read-eval-print after files")
	fmt.Println("  -e <expr>   read and evaluate <expr> as source")
	fmt.Println("  -h          print usage and exit 0")
}
