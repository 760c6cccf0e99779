/*
 * minijvm - a minimal Java Virtual Machine
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set by goreleaser at build time; "dev" otherwise.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("minijvm version %s\n", version)
	},
}
