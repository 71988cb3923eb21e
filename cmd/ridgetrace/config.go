package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ridgetrace/pkg/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return fmt.Errorf("create config: %w", err)
			}
			loggerFromContext(cmd.Context()).Info("Wrote default configuration", "path", path)
			return nil
		},
	})

	return cmd
}
