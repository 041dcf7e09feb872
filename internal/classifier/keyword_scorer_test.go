package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/classifier"
	"github.com/yaroing/feedback-platform/internal/textnorm"
)

func defaultScorer() *classifier.KeywordScorer {
	return classifier.NewKeywordScorer(classifier.DefaultCategoryKeywords(), classifier.DefaultKeywordWeight)
}

func TestKeywordScorer_Score(t *testing.T) {
	t.Parallel()

	scorer := defaultScorer()

	tests := []struct {
		name     string
		text     string
		want     string
		wantConf float64
	}{
		{
			// eau and sale: score 3, n=15 -> 3/22.5 * (1 + 2/15)
			name:     "two water keywords",
			text:     "Eau potable sale",
			want:     "Eau & Assainissement",
			wantConf: (3.0 / 22.5) * (1 + 2.0/15.0),
		},
		{
			// urgence is a medical keyword: 1/14 * (1 + 1/14) beats eau's 1/15 * (1 + 1/15)
			name:     "single keywords compete on list length",
			text:     "eau potable urgence",
			want:     "Assistance Médicale",
			wantConf: (1.0 / 14.0) * (1 + 1.0/14.0),
		},
		{
			name:     "repeated keyword",
			text:     "nourriture nourriture",
			want:     "Sécurité Alimentaire",
			wantConf: (3.0 / 19.5) * (1 + 1.0/13.0),
		},
		{
			// substring matching: beau contains eau
			name:     "substring match",
			text:     "il fait beau",
			want:     "Eau & Assainissement",
			wantConf: (1.0 / 15.0) * (1 + 1.0/15.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			category, conf := scorer.Score(textnorm.Normalize(tt.text))
			require.NotNil(t, category)
			assert.Equal(t, tt.want, *category)
			assert.InDelta(t, tt.wantConf, conf, 1e-9)
		})
	}
}

func TestKeywordScorer_NoMatch(t *testing.T) {
	t.Parallel()

	scorer := defaultScorer()
	for _, text := range []string{"", "rien à signaler", "xyz"} {
		category, conf := scorer.Score(textnorm.Normalize(text))
		assert.Nil(t, category, text)
		assert.Zero(t, conf, text)
	}
}

func TestKeywordScorer_TieGoesToFirstCategory(t *testing.T) {
	t.Parallel()

	scorer := classifier.NewKeywordScorer([]classifier.CategoryKeywords{
		{Name: "first", Keywords: []string{"stock", "alpha"}},
		{Name: "second", Keywords: []string{"stock", "beta"}},
	}, 0)

	category, _ := scorer.Score("stock")
	require.NotNil(t, category)
	assert.Equal(t, "first", *category)
}

func TestKeywordScorer_MonotonicInOccurrences(t *testing.T) {
	t.Parallel()

	scorer := defaultScorer()
	text := "latrine"
	_, prev := scorer.Score(text)
	for range 5 {
		text += " latrine"
		_, next := scorer.Score(text)
		assert.GreaterOrEqual(t, next, prev)
		prev = next
	}
}

func TestKeywordScorer_WeightCancelsInBase(t *testing.T) {
	t.Parallel()

	heavy := classifier.NewKeywordScorer(classifier.DefaultCategoryKeywords(), 3)
	_, a := heavy.Score("savon savon douche")
	_, b := defaultScorer().Score("savon savon douche")
	assert.InDelta(t, a, b, 1e-12)
}

func TestKeywordScorer_Scores(t *testing.T) {
	t.Parallel()

	scores := defaultScorer().Scores("distribution de nourriture")
	require.Len(t, scores, 2)
	assert.Equal(t, "Sécurité Alimentaire", scores[0].Category)
	assert.Equal(t, 2, scores[0].Matched)
	assert.Equal(t, "Équité de Distribution", scores[1].Category)
}
