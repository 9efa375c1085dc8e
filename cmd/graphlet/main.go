package main

import (
	"flag"
	"os"

	"github.com/plan-systems/klog"
)

func main() {
	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "1")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	rootCmd := newRootCmd(fset)
	err := rootCmd.Execute()
	if err != nil {
		klog.Errorf("%v", err)
	}

	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
