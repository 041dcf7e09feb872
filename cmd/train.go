package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yaroing/feedback-platform/internal/bootstrap"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/registry"
)

type trainOptions struct {
	name        string
	description string
	minSamples  int
	testSize    float64
	activate    bool
	useExisting bool
}

func newTrainCommand(opts *globalOptions) *cobra.Command {
	var o trainOptions

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a new statistical model from categorized feedback",
		Long: `Train a new model on every feedback item that carries a category, optionally adding
the validated training examples. Categories with fewer than --min-samples examples are
left out. The new model becomes the active one unless --activate=false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.name == "" {
				o.name = "NLP Model " + time.Now().Format(time.DateOnly)
			}
			return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
				return runTrain(ctx, cmd.OutOrStdout(), comps, o)
			})
		},
	}

	cmd.Flags().StringVar(&o.name, "name", "", `model name (default "NLP Model <date>")`)
	cmd.Flags().StringVar(&o.description, "description", "", "model description")
	cmd.Flags().IntVar(&o.minSamples, "min-samples", 0, "minimum examples per category (default from config)")
	cmd.Flags().Float64Var(&o.testSize, "test-size", 0, "held-out fraction for evaluation (default from config)")
	cmd.Flags().BoolVar(&o.activate, "activate", true, "make the new model the active one")
	cmd.Flags().BoolVar(&o.useExisting, "use-existing", false, "also train on validated training examples")

	return cmd
}

func runTrain(ctx context.Context, out io.Writer, comps *bootstrap.Components, o trainOptions) error {
	categorized, err := comps.Database.Feedback.ListCategorized(ctx)
	if err != nil {
		return fmt.Errorf("load categorized feedback: %w", err)
	}
	examples := registry.ExamplesFrom(categorized)
	fmt.Fprintf(out, "Categorized feedback: %d\n", len(categorized))

	if o.useExisting {
		validated, listErr := comps.Database.TrainingData.ListValidated(ctx)
		if listErr != nil {
			return fmt.Errorf("load training examples: %w", listErr)
		}
		examples = append(examples, registry.ExamplesFrom(validated)...)
		fmt.Fprintf(out, "Validated training examples: %d\n", len(validated))
	}

	renderCategoryCounts(out, examples)

	report, err := comps.Registry.CreateAndTrain(ctx, registry.CreateRequest{
		Name:        o.name,
		Description: o.description,
		ModelType:   comps.Config.NLP.ModelType,
		Examples:    examples,
		MinSamples:  o.minSamples,
		TestSize:    o.testSize,
		Activate:    o.activate,
	})
	if err != nil {
		return fmt.Errorf("train model: %w", err)
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped categories (too few examples): %s\n", strings.Join(report.Skipped, ", "))
	}
	fmt.Fprintf(out, "Training examples: %d, test examples: %d\n", report.TrainSize, report.TestSize)

	t := newTable(out)
	t.AppendHeader(table.Row{"Model", "Accuracy", "Precision", "Recall", "F1", "Active"})
	t.AppendRow(table.Row{
		fmt.Sprintf("#%d %s", report.Model.ID, report.Model.Name),
		percent(report.Metrics.Accuracy),
		percent(report.Metrics.Precision),
		percent(report.Metrics.Recall),
		percent(report.Metrics.F1),
		report.Model.IsActive,
	})
	t.Render()
	return nil
}

func renderCategoryCounts(out io.Writer, examples []nlp.Example) {
	counts := make(map[string]int)
	for _, ex := range examples {
		counts[ex.Category]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable(out)
	t.AppendHeader(table.Row{"Category", "Examples"})
	for _, name := range names {
		t.AppendRow(table.Row{name, counts[name]})
	}
	t.Render()
}
