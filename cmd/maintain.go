package cmd

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yaroing/feedback-platform/internal/bootstrap"
)

func newMaintainCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run one model maintenance pass",
		Long: `Activate the best trained model when none is active and retrain a stale active
model. Untrained models are trained once enough validated examples exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
				report, err := comps.Checker.Run(ctx)

				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Action", "Models"})
				t.AppendRow(table.Row{"activated", fmt.Sprint(report.Activated)})
				t.AppendRow(table.Row{"retrained", fmt.Sprint(report.Retrained)})
				t.AppendRow(table.Row{"trained", fmt.Sprint(report.Trained)})
				t.AppendRow(table.Row{"skipped", fmt.Sprint(report.Skipped)})
				t.Render()

				if err != nil {
					return fmt.Errorf("maintenance: %w", err)
				}
				return nil
			})
		},
	}
}
