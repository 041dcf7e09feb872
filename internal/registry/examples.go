package registry

import (
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
)

// ExamplesFrom converts stored training examples into pipeline input.
func ExamplesFrom(training []domain.TrainingExample) []nlp.Example {
	out := make([]nlp.Example, 0, len(training))
	for _, ex := range training {
		out = append(out, nlp.Example{Text: ex.Content, Category: ex.CategoryName})
	}
	return out
}
