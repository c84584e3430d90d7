package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "ralph - human-in-the-loop checklist runner",
	Long: `ralph walks a markdown checklist one task at a time, writes a work packet
for each task, and waits while an external coding agent does the work.`,
	SilenceUsage: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	projectDir string
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", ".", "Project directory containing .ralph/")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <project>/.ralph/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(packetCmd)
	rootCmd.AddCommand(gatesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
