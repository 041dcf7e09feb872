package processor

import (
	"fmt"

	"github.com/yaroing/feedback-platform/internal/domain"
)

const (
	// DefaultCategoryThreshold is the confidence a category must exceed to be written.
	DefaultCategoryThreshold = 0.2
	// DefaultFallbackThreshold applies instead to keyword fallback results.
	DefaultFallbackThreshold = 0.1
)

// CommitPolicy decides whether a classification's category is written back. It is
// separate from the engine's own acceptance gate.
type CommitPolicy struct {
	CategoryThreshold   float64
	FallbackThreshold   float64
	UseKeywordsFallback bool
}

// DefaultCommitPolicy returns the stock thresholds with keyword fallback enabled.
func DefaultCommitPolicy() CommitPolicy {
	return CommitPolicy{
		CategoryThreshold:   DefaultCategoryThreshold,
		FallbackThreshold:   DefaultFallbackThreshold,
		UseKeywordsFallback: true,
	}
}

// Accepts reports whether the category of result should be committed.
func (p CommitPolicy) Accepts(result domain.ClassificationResult) bool {
	if result.Category == nil {
		return false
	}
	if result.Confidence > p.CategoryThreshold {
		return true
	}
	return p.UseKeywordsFallback &&
		result.Strategy == domain.StrategyKeyword &&
		result.Confidence > p.FallbackThreshold
}

// logDetails renders the audit message of one automatic classification. The category
// part is present only when a category was written.
func logDetails(category *domain.Category, confidence float64, priority domain.Priority) string {
	details := "Classification automatique par NLP: "
	if category != nil {
		details += fmt.Sprintf("Catégorie '%s' (confiance: %.2f), ", category.Name, confidence)
	}
	return details + fmt.Sprintf("Priorité '%s'", priority)
}
