package classifier

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	"github.com/yaroing/feedback-platform/internal/textnorm"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

// Engine runs the ordered strategy chain and the priority suggester.
type Engine struct {
	strategies []Strategy
	priority   *PrioritySuggester
	rules      *RuleScorer
	logger     infralogger.Logger
	telemetry  *telemetry.Provider
}

// EngineConfig holds the engine's collaborators. Strategies run in slice order.
type EngineConfig struct {
	Strategies []Strategy
	Priority   *PrioritySuggester
	// Rules applies operator keyword rules in ClassifyWithRules. Optional.
	Rules     *RuleScorer
	Logger    infralogger.Logger
	Telemetry *telemetry.Provider
}

// NewEngine builds an engine. A nil Priority uses the built-in lists and a nil Logger
// discards output.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		strategies: cfg.Strategies,
		priority:   cfg.Priority,
		rules:      cfg.Rules,
		logger:     cfg.Logger,
		telemetry:  cfg.Telemetry,
	}
	if e.priority == nil {
		e.priority = NewPrioritySuggester(DefaultPriorityKeywords())
	}
	if e.logger == nil {
		e.logger = infralogger.NewNop()
	}
	return e
}

// Classify assigns a category, confidence and priority to raw text. It never fails:
// strategy errors are logged and the next strategy is tried. Empty text yields no
// category, zero confidence and medium priority.
func (e *Engine) Classify(ctx context.Context, text string) domain.ClassificationResult {
	return e.ClassifyWithRules(ctx, text, nil)
}

// ClassifyWithRules is Classify followed by operator keyword rules: the best accepted
// rule overrides the category, the confidence and, when set, the priority.
func (e *Engine) ClassifyWithRules(ctx context.Context, text string, rules []domain.KeywordRule) domain.ClassificationResult {
	if text == "" {
		return domain.ClassificationResult{Priority: domain.PriorityMedium, Strategy: domain.StrategyNone}
	}

	start := time.Now()
	ctx, span := e.telemetry.StartSpan(ctx, "classifier.classify")
	defer span.End()

	normalized := textnorm.Normalize(text)
	result := domain.ClassificationResult{
		Priority: e.priority.Suggest(normalized),
		Strategy: domain.StrategyNone,
	}

	for _, s := range e.strategies {
		pred, ok := e.try(ctx, s, normalized)
		if !ok {
			continue
		}
		category := pred.Category
		result.Category = &category
		result.Confidence = pred.Confidence
		result.Strategy = s.Name()
		result.ModelID = pred.ModelID
		break
	}

	if e.rules != nil && len(rules) > 0 {
		before := result.Strategy
		result = e.rules.Apply(result, normalized, rules)
		if result.Strategy != before {
			e.telemetry.RecordRuleApplied(ctx)
		}
	}

	span.SetAttributes(
		attribute.String("strategy", result.Strategy),
		attribute.String("category", result.CategoryName()),
		attribute.Float64("confidence", result.Confidence),
	)
	e.telemetry.RecordClassification(ctx, result.Strategy, time.Since(start))

	e.logger.Debug("Feedback classified",
		infralogger.String("strategy", result.Strategy),
		infralogger.String("category", result.CategoryName()),
		infralogger.Float64("confidence", result.Confidence),
		infralogger.String("priority", string(result.Priority)),
	)

	return result
}

func (e *Engine) try(ctx context.Context, s Strategy, normalized string) (*Prediction, bool) {
	if !s.CanHandle(ctx) {
		e.telemetry.RecordFallback(ctx, s.Name()+"_unavailable")
		return nil, false
	}

	pred, err := s.Classify(ctx, normalized)
	if isUnavailable(err) {
		e.telemetry.RecordFallback(ctx, s.Name()+"_unavailable")
		return nil, false
	}
	if err != nil {
		e.logger.Warn("Classification strategy failed, falling back",
			infralogger.String("strategy", s.Name()),
			infralogger.Error(err),
		)
		e.telemetry.RecordFallback(ctx, s.Name()+"_error")
		return nil, false
	}

	if !s.Accept(pred) {
		e.telemetry.RecordFallback(ctx, s.Name()+"_rejected")
		return nil, false
	}
	return pred, true
}
