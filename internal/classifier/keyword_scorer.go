// Package classifier assigns a category, a confidence and a suggested priority to
// feedback text. Keyword lists, operator rules and the statistical model are combined
// through an ordered list of strategies.
package classifier

import (
	"strings"

	"github.com/yaroing/feedback-platform/internal/textnorm"
)

// DefaultKeywordWeight is the per-occurrence keyword weight.
const DefaultKeywordWeight = 1.5

// CategoryScore is the keyword score of one category.
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Matched  int     `json:"matched"`
}

// KeywordScorer scores normalized text against fixed per-category keyword lists.
// Keywords match as substrings, so "eau" also matches inside "beau".
type KeywordScorer struct {
	categories []CategoryKeywords
	weight     float64
	matcher    *keywordMatcher
}

// NewKeywordScorer builds a scorer. weight <= 0 means DefaultKeywordWeight. Keywords are
// normalized like feedback text; empty ones are dropped.
func NewKeywordScorer(categories []CategoryKeywords, weight float64) *KeywordScorer {
	if weight <= 0 {
		weight = DefaultKeywordWeight
	}

	s := &KeywordScorer{
		categories: make([]CategoryKeywords, 0, len(categories)),
		weight:     weight,
	}

	lists := make([][]string, 0, len(categories))
	for _, cat := range categories {
		keywords := make([]string, 0, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			if kw = textnorm.Normalize(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		s.categories = append(s.categories, CategoryKeywords{Name: cat.Name, Keywords: keywords})
		lists = append(lists, keywords)
	}

	s.matcher = newKeywordMatcher(lists...)
	return s
}

// Score returns the best category for normalized text and its confidence, or nil and 0
// when no keyword occurs. For a category with n keywords, matched of which occur:
//
//	score = Σ occurrences × weight
//	final = score / (n × weight) × (1 + matched/n)
//
// On equal final scores the category listed first wins.
func (s *KeywordScorer) Score(normalized string) (*string, float64) {
	var (
		best      string
		bestScore float64
	)
	for _, cs := range s.Scores(normalized) {
		if cs.Score > bestScore {
			best, bestScore = cs.Category, cs.Score
		}
	}
	if bestScore == 0 {
		return nil, 0
	}
	return &best, bestScore
}

// Scores returns every category with a non-zero score, in list order.
func (s *KeywordScorer) Scores(normalized string) []CategoryScore {
	found := s.matcher.present(normalized)
	if len(found) == 0 {
		return nil
	}

	var out []CategoryScore
	for _, cat := range s.categories {
		n := float64(len(cat.Keywords))
		if n == 0 {
			continue
		}

		var score float64
		matched := 0
		for _, kw := range cat.Keywords {
			if _, ok := found[kw]; !ok {
				continue
			}
			matched++
			score += float64(strings.Count(normalized, kw)) * s.weight
		}
		if score == 0 {
			continue
		}

		base := score / (n * s.weight)
		out = append(out, CategoryScore{
			Category: cat.Name,
			Score:    base * (1 + float64(matched)/n),
			Matched:  matched,
		})
	}
	return out
}
