package classifier

import (
	"context"
	"errors"

	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
)

// DefaultEngineThreshold is the posterior a statistical prediction must strictly exceed
// to be kept.
const DefaultEngineThreshold = 0.3

// Prediction is one strategy's answer.
type Prediction struct {
	Category   string
	Confidence float64
	// ModelID is set by strategies backed by a registered model.
	ModelID *int64
}

// Strategy is one step of the classification chain. The engine asks each strategy in
// turn and keeps the first prediction it accepts.
type Strategy interface {
	Name() string
	// CanHandle reports whether the strategy is usable right now.
	CanHandle(ctx context.Context) bool
	// Classify predicts from normalized text. A nil prediction means no answer.
	Classify(ctx context.Context, normalized string) (*Prediction, error)
	// Accept is the strategy's confidence gate.
	Accept(p *Prediction) bool
}

// ModelSource resolves the active statistical model. registry.Registry implements it.
type ModelSource interface {
	Active(ctx context.Context, modelType string) (*domain.Model, *nlp.Pipeline, error)
	RecordUsage(ctx context.Context, modelID int64)
}

// StatisticalStrategy predicts with the active TF-IDF + naive Bayes model.
type StatisticalStrategy struct {
	source    ModelSource
	modelType string
	threshold float64
}

// NewStatisticalStrategy returns a strategy over the active model of modelType.
func NewStatisticalStrategy(source ModelSource, modelType string, threshold float64) *StatisticalStrategy {
	if modelType == "" {
		modelType = domain.DefaultModelType
	}
	return &StatisticalStrategy{source: source, modelType: modelType, threshold: threshold}
}

// Name implements Strategy.
func (s *StatisticalStrategy) Name() string { return domain.StrategyStatistical }

// CanHandle is true when a model source is wired. Whether a model is actually active is
// only known once Classify resolves it.
func (s *StatisticalStrategy) CanHandle(context.Context) bool {
	return s.source != nil
}

// Classify predicts with the active model and records its usage. Without an active,
// loadable model it fails with an error matching nlp.ErrModelUnavailable.
func (s *StatisticalStrategy) Classify(ctx context.Context, normalized string) (*Prediction, error) {
	model, pipeline, err := s.source.Active(ctx, s.modelType)
	if err != nil {
		return nil, err
	}

	pred, err := pipeline.Predict(normalized)
	if err != nil {
		return nil, err
	}

	s.source.RecordUsage(ctx, model.ID)

	id := model.ID
	return &Prediction{Category: pred.Category, Confidence: pred.Confidence, ModelID: &id}, nil
}

// Accept keeps predictions strictly above the engine threshold.
func (s *StatisticalStrategy) Accept(p *Prediction) bool {
	return p != nil && p.Category != "" && p.Confidence > s.threshold
}

// KeywordStrategy scores the built-in category keyword lists.
type KeywordStrategy struct {
	scorer *KeywordScorer
}

// NewKeywordStrategy wraps a keyword scorer.
func NewKeywordStrategy(scorer *KeywordScorer) *KeywordStrategy {
	return &KeywordStrategy{scorer: scorer}
}

// Name implements Strategy.
func (s *KeywordStrategy) Name() string { return domain.StrategyKeyword }

// CanHandle is always true.
func (s *KeywordStrategy) CanHandle(context.Context) bool { return true }

// Classify never fails; text without keywords yields a nil prediction.
func (s *KeywordStrategy) Classify(_ context.Context, normalized string) (*Prediction, error) {
	category, confidence := s.scorer.Score(normalized)
	if category == nil {
		return nil, nil //nolint:nilnil // no keyword matched
	}
	return &Prediction{Category: *category, Confidence: confidence}, nil
}

// Accept keeps any keyword match.
func (s *KeywordStrategy) Accept(p *Prediction) bool {
	return p != nil && p.Category != "" && p.Confidence > 0
}

// isUnavailable reports errors the engine treats as a silent fallback.
func isUnavailable(err error) bool {
	return errors.Is(err, nlp.ErrModelUnavailable)
}
