/*
 * minijvm - a minimal Java Virtual Machine
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"minijvm/internal/classfile"
	"minijvm/internal/dump"
	"minijvm/internal/mlog"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <class-file> [class-file...]",
	Short: "Print a disassembly report for one or more class files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	mlog.Init()
	if verbose {
		_ = mlog.SetLogLevel(mlog.Fine)
	}
	for _, path := range args {
		cls, err := classfile.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		fmt.Println(dump.Report(cls))
	}
	return nil
}
