package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yaroing/feedback-platform/internal/bootstrap"
	"github.com/yaroing/feedback-platform/internal/classifier"
	"github.com/yaroing/feedback-platform/internal/domain"
)

// errNoRuleForCategory is returned by rules update when the category has no rule yet.
var errNoRuleForCategory = errors.New("no keyword rule for category")

type ruleOptions struct {
	name       string
	category   string
	keywords   string
	priority   string
	confidence float64
}

func newRulesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword rules",
	}

	cmd.AddCommand(
		newRulesListCommand(opts),
		newRulesAddCommand(opts),
		newRulesUpdateCommand(opts),
		newRulesExtractCommand(opts),
	)
	return cmd
}

func newRulesListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keyword rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
				rules, err := comps.Database.Rules.List(ctx)
				if err != nil {
					return fmt.Errorf("list rules: %w", err)
				}
				if len(rules) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No keyword rules")
					return nil
				}

				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"ID", "Name", "Category", "Priority", "Boost", "Keywords"})
				for _, r := range rules {
					priority := "-"
					if r.Priority != nil {
						priority = string(*r.Priority)
					}
					t.AppendRow(table.Row{r.ID, r.Name, r.CategoryName, priority, r.ConfidenceBoost, strings.Join(r.Keywords, ", ")})
				}
				t.Render()
				return nil
			})
		},
	}
}

func newRulesAddCommand(opts *globalOptions) *cobra.Command {
	var o ruleOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a keyword rule for a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rule := domain.KeywordRule{
				Name:            o.name,
				Keywords:        domain.ParseKeywords(o.keywords),
				ConfidenceBoost: o.confidence,
			}
			if rule.Name == "" {
				rule.Name = "Règle pour " + o.category
			}
			if len(rule.Keywords) == 0 {
				return errors.New("--keywords must list at least one keyword")
			}
			if err := setRulePriority(&rule, o.priority); err != nil {
				return err
			}

			return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
				category, err := comps.Database.Categories.FindByName(ctx, o.category)
				if err != nil {
					return err
				}
				rule.CategoryID = category.ID
				rule.CategoryName = category.Name

				if err = comps.Database.Rules.Create(ctx, &rule); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule created: %s (#%d) with %d keywords\n", rule.Name, rule.ID, len(rule.Keywords))
				return nil
			})
		},
	}

	addRuleFlags(cmd, &o)
	cmd.Flags().StringVar(&o.name, "name", "", `rule name (default "Règle pour <category>")`)
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("keywords")
	return cmd
}

func newRulesUpdateCommand(opts *globalOptions) *cobra.Command {
	var o ruleOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the keyword rule of a category",
		Long:  `Update the first rule of --category. Only the flags given are changed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
				category, err := comps.Database.Categories.FindByName(ctx, o.category)
				if err != nil {
					return err
				}
				rules, err := comps.Database.Rules.List(ctx)
				if err != nil {
					return fmt.Errorf("list rules: %w", err)
				}
				rule := firstRuleFor(rules, category.ID)
				if rule == nil {
					return fmt.Errorf("%w %q", errNoRuleForCategory, category.Name)
				}

				if flags.Changed("keywords") {
					rule.Keywords = domain.ParseKeywords(o.keywords)
					if len(rule.Keywords) == 0 {
						return errors.New("--keywords must list at least one keyword")
					}
				}
				if flags.Changed("priority") {
					if err = setRulePriority(rule, o.priority); err != nil {
						return err
					}
				}
				if flags.Changed("confidence") {
					rule.ConfidenceBoost = o.confidence
				}

				if err = comps.Database.Rules.Update(ctx, rule); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule updated: %s (#%d) with %d keywords\n", rule.Name, rule.ID, len(rule.Keywords))
				return nil
			})
		},
	}

	addRuleFlags(cmd, &o)
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func addRuleFlags(cmd *cobra.Command, o *ruleOptions) {
	cmd.Flags().StringVar(&o.category, "category", "", "category name")
	cmd.Flags().StringVar(&o.keywords, "keywords", "", "comma-separated keywords")
	cmd.Flags().StringVar(&o.priority, "priority", "", "priority to assign: low, medium, high or urgent")
	cmd.Flags().Float64Var(&o.confidence, "confidence", 0, "confidence boost added on a match")
}

// setRulePriority sets the rule priority; an empty value clears it.
func setRulePriority(rule *domain.KeywordRule, value string) error {
	if value == "" {
		rule.Priority = nil
		return nil
	}
	p, err := domain.ParsePriority(value)
	if err != nil {
		return err
	}
	rule.Priority = &p
	return nil
}

func firstRuleFor(rules []domain.KeywordRule, categoryID int64) *domain.KeywordRule {
	for i := range rules {
		if rules[i].CategoryID == categoryID {
			return &rules[i]
		}
	}
	return nil
}

func newRulesExtractCommand(opts *globalOptions) *cobra.Command {
	var (
		minFrequency int
		limit        int
		output       string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Suggest rule keywords from categorized feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd.Context(), false, func(ctx context.Context, comps *bootstrap.Components) error {
				categorized, err := comps.Database.Feedback.ListCategorized(ctx)
				if err != nil {
					return fmt.Errorf("load categorized feedback: %w", err)
				}
				if len(categorized) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No categorized feedback")
					return nil
				}

				suggestions := suggestKeywords(categorized, minFrequency)
				renderSuggestions(cmd.OutOrStdout(), suggestions, limit)

				if output == "" {
					return nil
				}
				if err = writeSuggestions(output, suggestions); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Suggestions saved to %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&minFrequency, "min-frequency", classifier.DefaultMinFrequency, "minimum occurrences of a keyword")
	cmd.Flags().IntVar(&limit, "limit", classifier.DefaultExtractLimit, "keywords shown per category")
	cmd.Flags().StringVar(&output, "output", "", "write every suggestion to this JSON file")
	return cmd
}

// suggestKeywords runs keyword extraction per category. The result is unlimited; only
// the display is capped.
func suggestKeywords(examples []domain.TrainingExample, minFrequency int) map[string][]classifier.KeywordCount {
	texts := make(map[string][]string)
	for _, ex := range examples {
		texts[ex.CategoryName] = append(texts[ex.CategoryName], ex.Content)
	}

	out := make(map[string][]classifier.KeywordCount, len(texts))
	for category, list := range texts {
		out[category] = classifier.ExtractKeywords(list, minFrequency, 0)
	}
	return out
}

func renderSuggestions(w io.Writer, suggestions map[string][]classifier.KeywordCount, limit int) {
	categories := make([]string, 0, len(suggestions))
	for category := range suggestions {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	t := newTable(w)
	t.AppendHeader(table.Row{"Category", "Keyword", "Occurrences"})
	for _, category := range categories {
		words := suggestions[category]
		if limit > 0 && len(words) > limit {
			words = words[:limit]
		}
		for _, kc := range words {
			t.AppendRow(table.Row{category, kc.Keyword, kc.Count})
		}
	}
	t.Render()
}

func writeSuggestions(path string, suggestions map[string][]classifier.KeywordCount) error {
	byCategory := make(map[string]map[string]int, len(suggestions))
	for category, words := range suggestions {
		counts := make(map[string]int, len(words))
		for _, kc := range words {
			counts[kc.Keyword] = kc.Count
		}
		byCategory[category] = counts
	}

	data, err := json.MarshalIndent(byCategory, "", "  ")
	if err != nil {
		return fmt.Errorf("encode suggestions: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write suggestions: %w", err)
	}
	return nil
}
