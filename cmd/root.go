package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"lumen/logx"
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Lumen beacon chain node CLI",
	Long:  "Command line interface for running and managing a Lumen beacon chain node.",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("cmd", "command failed: ", err)
		os.Exit(1)
	}
}
