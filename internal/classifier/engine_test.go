package classifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/classifier"
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/telemetry"
)

type fakeSource struct {
	model    *domain.Model
	pipeline *nlp.Pipeline
	err      error

	mu      sync.Mutex
	usage   []int64
	lookups int
}

func (f *fakeSource) Active(context.Context, string) (*domain.Model, *nlp.Pipeline, error) {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.model, f.pipeline, nil
}

func (f *fakeSource) RecordUsage(_ context.Context, modelID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = append(f.usage, modelID)
}

func (f *fakeSource) usageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.usage)
}

func (f *fakeSource) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func separatedPipeline(t *testing.T) *nlp.Pipeline {
	t.Helper()
	p := nlp.NewPipeline(nlp.Config{})
	require.NoError(t, p.Fit([]nlp.Example{
		{Text: "football match stade ballon", Category: "Sport"},
		{Text: "ballon arbitre stade équipe", Category: "Sport"},
		{Text: "équipe football arbitre", Category: "Sport"},
		{Text: "recette gâteau four farine", Category: "Cuisine"},
		{Text: "farine beurre four recette", Category: "Cuisine"},
		{Text: "gâteau beurre sucre", Category: "Cuisine"},
	}))
	return p
}

func newEngine(source classifier.ModelSource, threshold float64) *classifier.Engine {
	return classifier.NewEngine(classifier.EngineConfig{
		Strategies: []classifier.Strategy{
			classifier.NewStatisticalStrategy(source, "", threshold),
			classifier.NewKeywordStrategy(defaultScorer()),
		},
		Rules:     classifier.NewRuleScorer(classifier.DefaultRuleAcceptance),
		Telemetry: telemetry.NewProvider(),
	})
}

func TestEngine_EmptyText(t *testing.T) {
	t.Parallel()

	engine := newEngine(&fakeSource{err: nlp.ErrModelUnavailable}, classifier.DefaultEngineThreshold)
	got := engine.Classify(context.Background(), "")

	assert.Nil(t, got.Category)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, domain.PriorityMedium, got.Priority)
	assert.Equal(t, domain.StrategyNone, got.Strategy)
}

func TestEngine_PunctuationOnlyUsesSuggesterDefault(t *testing.T) {
	t.Parallel()

	engine := newEngine(&fakeSource{err: nlp.ErrModelUnavailable}, classifier.DefaultEngineThreshold)
	got := engine.Classify(context.Background(), "!!! 42")

	assert.Nil(t, got.Category)
	assert.Equal(t, domain.PriorityLow, got.Priority)
}

func TestEngine_KeywordFallbackWithoutActiveModel(t *testing.T) {
	t.Parallel()

	source := &fakeSource{err: nlp.ErrModelUnavailable}
	engine := newEngine(source, classifier.DefaultEngineThreshold)
	ctx := context.Background()

	got := engine.Classify(ctx, "eau potable urgence")
	assert.Equal(t, domain.StrategyKeyword, got.Strategy)
	assert.Equal(t, domain.PriorityUrgent, got.Priority)
	assert.Equal(t, "Assistance Médicale", got.CategoryName())
	assert.Nil(t, got.ModelID)

	got = engine.Classify(ctx, "Eau potable sale, urgence !")
	assert.Equal(t, domain.StrategyKeyword, got.Strategy)
	assert.Equal(t, "Eau & Assainissement", got.CategoryName())
	assert.Equal(t, domain.PriorityUrgent, got.Priority)
	assert.Greater(t, got.Confidence, 0.0)

	assert.Zero(t, source.usageCount())
	assert.Equal(t, 2, source.lookupCount())
}

func TestEngine_StatisticalAccepted(t *testing.T) {
	t.Parallel()

	source := &fakeSource{model: &domain.Model{ID: 42, IsActive: true, IsTrained: true}, pipeline: separatedPipeline(t)}
	engine := newEngine(source, classifier.DefaultEngineThreshold)

	got := engine.Classify(context.Background(), "Le ballon du stade")
	assert.Equal(t, domain.StrategyStatistical, got.Strategy)
	assert.Equal(t, "Sport", got.CategoryName())
	assert.Greater(t, got.Confidence, 0.5)
	require.NotNil(t, got.ModelID)
	assert.Equal(t, int64(42), *got.ModelID)
	assert.Equal(t, 1, source.usageCount())
	assert.Equal(t, 1, source.lookupCount(), "active model resolved once per classification")
}

func TestEngine_StatisticalRejectedFallsBack(t *testing.T) {
	t.Parallel()

	source := &fakeSource{model: &domain.Model{ID: 1}, pipeline: separatedPipeline(t)}
	// Unknown words leave the two equal priors: 0.5 is not above 0.9.
	engine := newEngine(source, 0.9)

	got := engine.Classify(context.Background(), "toilette bouchée")
	assert.Equal(t, domain.StrategyKeyword, got.Strategy)
	assert.Equal(t, "Eau & Assainissement", got.CategoryName())
	assert.Nil(t, got.ModelID)
}

func TestEngine_StrategyErrorNeverSurfaces(t *testing.T) {
	t.Parallel()

	engine := newEngine(&fakeSource{err: errors.New("database is down")}, classifier.DefaultEngineThreshold)

	got := engine.Classify(context.Background(), "rien à signaler")
	assert.Nil(t, got.Category)
	assert.Equal(t, domain.StrategyNone, got.Strategy)
	assert.Equal(t, domain.PriorityLow, got.Priority)
}

func TestEngine_ClassifyWithRules(t *testing.T) {
	t.Parallel()

	engine := newEngine(&fakeSource{err: nlp.ErrModelUnavailable}, classifier.DefaultEngineThreshold)
	rules := []domain.KeywordRule{{
		ID: 3, CategoryName: "Barrières d'Accès",
		Keywords: domain.Keywords{"pont", "effondré"}, Priority: priorityPtr(domain.PriorityHigh),
	}}

	got := engine.ClassifyWithRules(context.Background(), "Le pont est effondré, pas d'eau", rules)
	assert.Equal(t, domain.StrategyRule, got.Strategy)
	assert.Equal(t, "Barrières d'Accès", got.CategoryName())
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.InDelta(t, 1.0, got.Confidence, 1e-12)
}

func TestEngine_ConcurrentClassify(t *testing.T) {
	t.Parallel()

	source := &fakeSource{model: &domain.Model{ID: 5}, pipeline: separatedPipeline(t)}
	engine := newEngine(source, classifier.DefaultEngineThreshold)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := engine.Classify(context.Background(), "recette de gâteau")
			assert.Equal(t, "Cuisine", got.CategoryName())
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, source.usageCount())
}
