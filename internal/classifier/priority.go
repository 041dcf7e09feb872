package classifier

import (
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/textnorm"
)

// PrioritySuggester maps normalized text to a priority from keyword presence.
type PrioritySuggester struct {
	lists   PriorityKeywords
	matcher *keywordMatcher
}

// NewPrioritySuggester returns a suggester over the given lists.
func NewPrioritySuggester(lists PriorityKeywords) *PrioritySuggester {
	normalized := PriorityKeywords{
		Urgent: normalizeAll(lists.Urgent),
		High:   normalizeAll(lists.High),
		Medium: normalizeAll(lists.Medium),
		Low:    normalizeAll(lists.Low),
	}
	return &PrioritySuggester{
		lists:   normalized,
		matcher: newKeywordMatcher(normalized.Urgent, normalized.High, normalized.Medium, normalized.Low),
	}
}

// Suggest counts, per list, how many keywords occur in the text. Any urgent keyword wins
// outright; high and medium need strict dominance; everything else is low, including
// text without any keyword.
func (p *PrioritySuggester) Suggest(normalized string) domain.Priority {
	found := p.matcher.present(normalized)
	urgent := countIn(found, p.lists.Urgent)
	high := countIn(found, p.lists.High)
	medium := countIn(found, p.lists.Medium)
	low := countIn(found, p.lists.Low)

	switch {
	case urgent > 0:
		return domain.PriorityUrgent
	case high > low && high > medium:
		return domain.PriorityHigh
	case medium > low:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func normalizeAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = textnorm.Normalize(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
