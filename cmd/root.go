// Package cmd implements the feedback-classifier command line: the HTTP service and the
// operator commands for models, keyword rules and one-off classification.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	debug      bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:          "feedback-classifier",
		Short:        "Classify humanitarian feedback by category and priority",
		Long:         `Runs the feedback classification service and manages its models and keyword rules.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(
		&opts.configPath,
		"config",
		"",
		"config file (default is $CONFIG_PATH or ./config.yml)",
	)
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "feedback-classifier version %s\n", Version)
		},
	})

	root.AddCommand(
		newServeCommand(opts),
		newTrainCommand(opts),
		newModelsCommand(opts),
		newRulesCommand(opts),
		newClassifyCommand(opts),
		newMaintainCommand(opts),
	)

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
