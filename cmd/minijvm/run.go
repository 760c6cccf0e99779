/*
 * minijvm - a minimal Java Virtual Machine
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minijvm/internal/dump"
	"minijvm/internal/interp"
	"minijvm/internal/mlog"
	"minijvm/internal/runtime"
)

var (
	traceFlag        bool
	maxCallDepthFlag int
	dumpBeforeRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run <class-file> [class-file...]",
	Short: "Interpret a class file's main([Ljava/lang/String;)V method",
	Long:  "run loads one or more .class files, resolves the first one with a main method as the entry point, and interprets its bytecode. Classes referenced but not loaded fall through to the java.lang/java.io bridge if a stub exists there, or fail the call otherwise.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&traceFlag, "trace", "t", false, "log every executed instruction at TRACE_INST level")
	runCmd.Flags().IntVar(&maxCallDepthFlag, "max-call-depth", interp.DefaultMaxCallDepth, "frame-stack depth past which a recursive call raises StackOverflowError")
	runCmd.Flags().BoolVarP(&dumpBeforeRun, "dump", "d", false, "print the disassembly report before running")
}

func runRun(cmd *cobra.Command, args []string) error {
	classes, entry, err := loadClasses(args)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no loaded class declares main([Ljava/lang/String;)V")
	}

	if dumpBeforeRun {
		fmt.Println(dump.Report(entry))
	}

	if traceFlag {
		_ = mlog.SetLogLevel(mlog.TraceInst)
	}

	bridge := runtime.New(os.Stdout)
	in := interp.New(bridge, classes)
	in.Trace = traceFlag
	if maxCallDepthFlag > 0 {
		in.MaxCallDepth = maxCallDepthFlag
	}

	if err := in.RunMain(entry); err != nil {
		return fmt.Errorf("%s: %w", entry.ThisClass, err)
	}
	return nil
}
