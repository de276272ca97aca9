package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd is the main command for the pxcrun binary, grounded on
// distribution-distribution/registry/root.go's RootCmd/AddCommand shape.
var RootCmd = &cobra.Command{
	Use:   "pxcrun",
	Short: "Run pxc sequence descriptors headlessly",
	Long:  "pxcrun loads a sequence descriptor, binds its instruments over TCP, and runs it to completion outside the GUI.",
	Run: func(cmd *cobra.Command, args []string) {
		// nolint:errcheck
		cmd.Usage()
	},
}

func init() {
	RootCmd.AddCommand(RunCmd)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
