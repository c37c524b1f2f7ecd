package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tlbsim version.",
	Args:  cobra.NoArgs,
	Run: func(c *cobra.Command, args []string) {
		version := "(devel)"

		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			version = info.Main.Version
		}

		fmt.Fprintf(c.OutOrStdout(), "tlbsim %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
