package classifier

import "github.com/yaroing/feedback-platform/internal/domain"

// DefaultRuleAcceptance is the confidence a keyword rule must strictly exceed to apply.
const DefaultRuleAcceptance = 0.5

// RuleMatch is the outcome of scoring one keyword rule.
type RuleMatch struct {
	Rule            domain.KeywordRule
	Matches         int
	Confidence      float64
	MatchedKeywords []string
}

// RuleScorer scores normalized text against operator keyword rules.
type RuleScorer struct {
	acceptance float64
}

// NewRuleScorer returns a scorer applying rules whose confidence exceeds acceptance.
func NewRuleScorer(acceptance float64) *RuleScorer {
	return &RuleScorer{acceptance: acceptance}
}

// Best scores every rule as matched/len(keywords) + ConfidenceBoost, counting a keyword
// once when it occurs anywhere in the text. Rules without any matching keyword are
// skipped. The highest confidence wins; on a tie the rule listed first is kept. The
// winner is returned only when its confidence is strictly above the acceptance level.
func (s *RuleScorer) Best(normalized string, rules []domain.KeywordRule) (*RuleMatch, bool) {
	if normalized == "" {
		return nil, false
	}

	keywords := make([][]string, len(rules))
	for i := range rules {
		keywords[i] = normalizeAll(rules[i].Keywords)
	}
	found := newKeywordMatcher(keywords...).present(normalized)
	if len(found) == 0 {
		return nil, false
	}

	var best *RuleMatch
	highest := 0.0
	for i := range rules {
		m := scoreRule(found, rules[i], keywords[i])
		if m == nil {
			continue
		}
		if m.Confidence > highest {
			highest = m.Confidence
			best = m
		}
	}

	if best == nil || best.Confidence <= s.acceptance {
		return nil, false
	}
	return best, true
}

// Apply overrides result with the best accepted rule: its category and confidence, and
// its priority when the rule sets one. result is returned unchanged otherwise.
func (s *RuleScorer) Apply(result domain.ClassificationResult, normalized string, rules []domain.KeywordRule) domain.ClassificationResult {
	m, ok := s.Best(normalized, rules)
	if !ok {
		return result
	}

	category := m.Rule.CategoryName
	result.Category = &category
	result.Confidence = m.Confidence
	result.Strategy = domain.StrategyRule
	result.ModelID = nil
	if m.Rule.Priority != nil && m.Rule.Priority.Valid() {
		result.Priority = *m.Rule.Priority
	}
	return result
}

// scoreRule scores rule from the keywords found in the text. keywords are the rule's
// normalized keywords.
func scoreRule(found map[string]struct{}, rule domain.KeywordRule, keywords []string) *RuleMatch {
	if len(rule.Keywords) == 0 {
		return nil
	}

	var matched []string
	for _, kw := range keywords {
		if _, ok := found[kw]; ok {
			matched = append(matched, kw)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	return &RuleMatch{
		Rule:            rule,
		Matches:         len(matched),
		Confidence:      float64(len(matched))/float64(len(rule.Keywords)) + rule.ConfidenceBoost,
		MatchedKeywords: matched,
	}
}
