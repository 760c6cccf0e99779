/*
 * minijvm - a minimal Java Virtual Machine
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "minijvm",
	Short: "A minimal Java Virtual Machine",
	Long:  "minijvm loads .class files, interprets their bytecode, and bridges a handful of java.lang/java.io calls to the host.",
}

// Execute runs the root command, exiting non-zero on any error the
// subcommands surface (parse failure, unhandled exception, or a
// structural mismatch between the requested class and its bytecode).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log FINE-level detail during class loading")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)
}
