package main

import (
	"os"
	"time"

	"github.com/go-python/gpython/py"
	"github.com/go-python/gpython/repl"
	"github.com/go-python/gpython/repl/cli"
	"github.com/plan-systems/klog"

	_ "github.com/fine-structures/graphlet/pygraphlet"
	_ "github.com/go-python/gpython/stdlib"
)

// Run before the REPL starts, if present.
const replStartup = "_REPL_startup.py"

// runScript executes the given gpython script, or starts a REPL if pathname is empty.
func runScript(pathname string) error {
	ctx := py.NewContext(py.DefaultContextOpts())

	var err error
	if len(pathname) == 0 {
		replCtx := repl.New(ctx)

		if _, statErr := os.Stat(replStartup); statErr == nil {
			err = runFile(ctx, replStartup, replCtx.Module)
		}
		if err == nil {
			cli.RunREPL(replCtx)
		}
	} else {
		startTime := time.Now()
		klog.Infof("<<<>>>   executing '%s'   <<<>>>", pathname)

		err = runFile(ctx, pathname, nil)
		if err == nil {
			klog.Infof("<<<>>>   execution complete: %v   <<<>>>", time.Since(startTime))
		}
	}

	ctx.Close()
	<-ctx.Done()

	if err != nil {
		py.TracebackDump(err)
	}
	return err
}

// runFile compiles and runs the script at pathname as given.  Absolute pathnames are not joined onto a search path.
func runFile(ctx py.Context, pathname string, inModule interface{}) error {
	src, err := os.ReadFile(pathname)
	if err != nil {
		return err
	}
	code, err := py.Compile(string(src), pathname, py.ExecMode, 0, true)
	if err != nil {
		return err
	}
	_, err = py.RunCode(ctx, code, pathname, inModule)
	return err
}
