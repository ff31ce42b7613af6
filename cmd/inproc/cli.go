package main

import (
	"fmt"

	"github.com/xyproto/inproc/internal/applog"
	"github.com/xyproto/inproc/internal/modules"
	"github.com/xyproto/inproc/internal/procfs"
	"github.com/xyproto/inproc/internal/threads"
)

func cmdModules() error {
	pm, err := procfs.QueryProgramModules()
	if err != nil {
		return err
	}
	applog.Printf("rtld_kind=%v program=%#x interp=%#x vdso=%#x\n",
		pm.RTLDKind, pm.Program.Base, pm.Interpreter.Base, pm.VDSO.Base)

	return modules.EnumerateModules(func(m *modules.Module) modules.Action {
		fmt.Printf("%#016x %10d  %s\n", m.Range.Base, m.Range.Size, m.Name)
		return modules.Continue
	})
}

func cmdThreads() error {
	return threads.EnumerateThreads(func(d *threads.Descriptor) threads.Action {
		fmt.Printf("%6d  %-10s %s\n", d.ID, d.State, d.Name)
		return threads.Continue
	})
}

func cmdResolve(moduleArg, symbol string) error {
	moduleName := moduleArg
	if moduleName == "-" {
		moduleName = ""
	}
	addr, err := modules.ModuleFindExport(moduleName, symbol)
	if err != nil {
		return err
	}
	fmt.Printf("%#016x\n", addr)
	return nil
}
