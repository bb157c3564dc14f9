package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "loopsim",
	Short: "loopsim can perform common tasks related to simulated loop test runs.",
	Long: `loopsim can perform common tasks related to simulated loop test runs. ` +
		`It currently inspects dispatch traces recorded by the tracerecording ` +
		`package (trace).`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
