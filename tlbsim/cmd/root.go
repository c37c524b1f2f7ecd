// Package cmd provides the command-line interface for tlbsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tlbsim",
	Short: "tlbsim simulates address translation through a TLB and a two-level page table.",
	Long: `tlbsim simulates how a memory-management unit translates virtual ` +
		`addresses. Each address is looked up in an LRU TLB and, on a miss, ` +
		`in a two-level page table. tlbsim reports TLB hits, misses and page ` +
		`faults for a set of access patterns.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Registered exit handlers, such as trace flushing, run before
// the process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
