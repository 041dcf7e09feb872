package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yaroing/feedback-platform/internal/bootstrap"
	"github.com/yaroing/feedback-platform/internal/domain"
)

func newClassifyCommand(opts *globalOptions) *cobra.Command {
	var (
		applyRules bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a piece of feedback text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
				var rules []domain.KeywordRule
				if applyRules {
					var err error
					if rules, err = comps.Database.Rules.List(ctx); err != nil {
						return fmt.Errorf("list rules: %w", err)
					}
				}

				result := comps.Engine.ClassifyWithRules(ctx, text, rules)

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				}

				category := result.CategoryName()
				if category == "" {
					category = "-"
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Category", "Confidence", "Priority", "Strategy"})
				t.AppendRow(table.Row{category, percent(result.Confidence), result.Priority, result.Strategy})
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&applyRules, "rules", false, "apply stored keyword rules")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
