package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/classifier"
	"github.com/yaroing/feedback-platform/internal/domain"
)

func priorityPtr(p domain.Priority) *domain.Priority { return &p }

func TestRuleScorer_AcceptanceIsStrict(t *testing.T) {
	t.Parallel()

	scorer := classifier.NewRuleScorer(classifier.DefaultRuleAcceptance)

	tests := []struct {
		name   string
		boost  float64
		accept bool
	}{
		{name: "exactly at threshold", boost: 0, accept: false},
		{name: "just above threshold", boost: 0.00001, accept: true},
		{name: "negative boost", boost: -0.1, accept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// one of two keywords matches: 0.5 + boost
			rules := []domain.KeywordRule{{
				ID: 1, CategoryName: "Abri & Logement",
				Keywords: domain.Keywords{"tente", "bâche"}, ConfidenceBoost: tt.boost,
			}}
			m, ok := scorer.Best("la tente est déchirée", rules)
			assert.Equal(t, tt.accept, ok)
			if tt.accept {
				require.NotNil(t, m)
				assert.InDelta(t, 0.5+tt.boost, m.Confidence, 1e-12)
				assert.Equal(t, []string{"tente"}, m.MatchedKeywords)
			}
		})
	}
}

func TestRuleScorer_BestAndTieBreak(t *testing.T) {
	t.Parallel()

	scorer := classifier.NewRuleScorer(classifier.DefaultRuleAcceptance)
	rules := []domain.KeywordRule{
		{ID: 1, CategoryName: "A", Keywords: domain.Keywords{"pluie", "inondation"}},
		{ID: 2, CategoryName: "B", Keywords: domain.Keywords{"pluie"}},
		{ID: 3, CategoryName: "C", Keywords: domain.Keywords{"inondation"}},
		{ID: 4, CategoryName: "D", Keywords: domain.Keywords{}},
	}

	m, ok := scorer.Best("pluie et inondation au camp", rules)
	require.True(t, ok)
	assert.Equal(t, int64(1), m.Rule.ID, "first of the rules scoring 1.0")
	assert.Equal(t, 2, m.Matches)

	_, ok = scorer.Best("", rules)
	assert.False(t, ok)
}

func TestRuleScorer_KeywordsAreNormalized(t *testing.T) {
	t.Parallel()

	scorer := classifier.NewRuleScorer(classifier.DefaultRuleAcceptance)
	rules := []domain.KeywordRule{{ID: 1, CategoryName: "A", Keywords: domain.Keywords{"  Hôpital! "}}}

	_, ok := scorer.Best("l hôpital est fermé", rules)
	assert.True(t, ok)
}

func TestRuleScorer_Apply(t *testing.T) {
	t.Parallel()

	scorer := classifier.NewRuleScorer(classifier.DefaultRuleAcceptance)
	keywordCategory := "Eau & Assainissement"
	base := domain.ClassificationResult{
		Category:   &keywordCategory,
		Confidence: 0.07,
		Priority:   domain.PriorityLow,
		Strategy:   domain.StrategyKeyword,
	}

	t.Run("rule with priority", func(t *testing.T) {
		t.Parallel()
		rules := []domain.KeywordRule{{
			ID: 7, CategoryName: "Violence Basée sur le Genre",
			Keywords: domain.Keywords{"agression"}, Priority: priorityPtr(domain.PriorityUrgent),
		}}
		got := scorer.Apply(base, "agression près des latrines", rules)
		assert.Equal(t, "Violence Basée sur le Genre", got.CategoryName())
		assert.InDelta(t, 1.0, got.Confidence, 1e-12)
		assert.Equal(t, domain.PriorityUrgent, got.Priority)
		assert.Equal(t, domain.StrategyRule, got.Strategy)
	})

	t.Run("rule without priority keeps suggestion", func(t *testing.T) {
		t.Parallel()
		rules := []domain.KeywordRule{{ID: 8, CategoryName: "X", Keywords: domain.Keywords{"latrines"}}}
		got := scorer.Apply(base, "agression près des latrines", rules)
		assert.Equal(t, "X", got.CategoryName())
		assert.Equal(t, domain.PriorityLow, got.Priority)
	})

	t.Run("no accepted rule", func(t *testing.T) {
		t.Parallel()
		got := scorer.Apply(base, "rien", nil)
		assert.Equal(t, base, got)
	})
}
