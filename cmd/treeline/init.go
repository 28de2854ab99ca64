package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/treeline-dev/treeline/internal/config"
)

func initCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a treeline.json in the current directory",
		Long: `Write a treeline.json with default settings.

The config controls the HTTP server address, static file serving,
render engine defaults, and static export output. Every field can
also be overridden with TREELINE_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			if config.Exists(dir) {
				return fmt.Errorf("%s already exists", config.ConfigFileName)
			}

			cfg := config.New()
			cfg.Name = name
			if err := cfg.SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
				return err
			}

			success("created %s", config.ConfigFileName)
			info("serve an exported site with: treeline serve")
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name")

	return cmd
}
