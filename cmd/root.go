package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "redline",
	Short: "LLM-driven line-oriented code editing",
	Long: `Redline drives a language model through an edit-verify loop against your
workspace. The model emits anchored line-edit directives; redline validates
them against the current file content, applies what matches, runs your
verification command, and feeds failures back until the build is green or
the run is clearly stuck.

Typical use:

  redline run "add a --verbose flag" -f cmd/main.go --verify "go build ./..."`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
}
