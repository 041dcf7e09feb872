package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yaroing/feedback-platform/internal/bootstrap"
	"github.com/yaroing/feedback-platform/internal/registry"
)

func newModelsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and manage registered models",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registered models",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
					models, err := comps.Registry.List(ctx)
					if err != nil {
						return fmt.Errorf("list models: %w", err)
					}
					if len(models) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No models registered")
						return nil
					}

					t := newTable(cmd.OutOrStdout())
					t.AppendHeader(table.Row{"ID", "Name", "Type", "State", "Accuracy", "F1", "Examples", "Uses", "Last Trained"})
					for i := range models {
						m := &models[i]
						t.AppendRow(table.Row{
							m.ID,
							m.Name,
							m.ModelType,
							m.State(),
							percent(m.Accuracy),
							percent(m.F1Score),
							m.TrainingDataSize,
							m.UsageCount,
							formatTime(m.LastTrained),
						})
					}
					t.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "activate <id>",
			Short: "Make a trained model the active one for its type",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseModelID(args[0])
				if err != nil {
					return err
				}
				return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
					if err := comps.Registry.Activate(ctx, id); err != nil {
						return fmt.Errorf("activate model %d: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Model %d is now active\n", id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "train <id>",
			Short: "Retrain an existing model on every validated training example",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseModelID(args[0])
				if err != nil {
					return err
				}
				return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
					validated, err := comps.Database.TrainingData.ListValidated(ctx)
					if err != nil {
						return fmt.Errorf("load training examples: %w", err)
					}
					metrics, err := comps.Registry.Train(ctx, id, registry.ExamplesFrom(validated))
					if err != nil {
						return fmt.Errorf("train model %d: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Model %d trained on %d examples, accuracy %s\n",
						id, metrics.Size, percent(metrics.Accuracy))
					return nil
				})
			},
		},
	)

	return cmd
}

func parseModelID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid model id %q", arg)
	}
	return id, nil
}
