package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"ridgetrace/pkg/config"
)

// rootOptions are the flags shared by all commands.
type rootOptions struct {
	verbose    bool
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "ridgetrace",
		Short:        "Extract vessel and airway centerlines from tubeness volumes",
		Long:         `ridgetrace follows the ridges of a tubeness field to extract the centerlines of tube-like structures as line segments and a binary mask.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "ridgetrace.yaml", "path to the YAML configuration")

	root.AddCommand(newExtractCmd(opts))
	root.AddCommand(newPhantomCmd())
	root.AddCommand(newConfigCmd(opts))

	return root
}

// loadConfig reads the configuration and raises the log level when the file
// asks for verbose output.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Output.Verbose {
		loggerFromContext(cmd.Context()).SetLevel(log.DebugLevel)
	}
	return cfg, nil
}
