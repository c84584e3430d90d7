package main

import (
	"fmt"
	"path/filepath"

	"github.com/fentz26/ralph/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the .ralph directory with a default config and checklist",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}
	created, err := config.InitProjectDir(dir)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already initialized\n", filepath.Join(dir, config.Dir))
		return nil
	}
	for _, p := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", p)
	}
	return nil
}
