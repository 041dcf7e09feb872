// Package processor classifies stored feedback in the background and writes the
// results back.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yaroing/feedback-platform/internal/database"
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

const defaultWorkerConcurrency = 10

// Classifier is the classification engine as seen by the processor.
type Classifier interface {
	ClassifyWithRules(ctx context.Context, text string, rules []domain.KeywordRule) domain.ClassificationResult
}

// FeedbackStore reads pending feedback and writes classifications back.
type FeedbackStore interface {
	ListUnclassified(ctx context.Context, limit int) ([]domain.Feedback, error)
	ApplyClassification(ctx context.Context, u database.FeedbackUpdate) error
}

// CategoryResolver maps a category name to a stored category.
type CategoryResolver interface {
	FindByName(ctx context.Context, name string) (*domain.Category, error)
}

// RuleSource lists operator keyword rules.
type RuleSource interface {
	List(ctx context.Context) ([]domain.KeywordRule, error)
}

// ProcessResult holds the result of processing a single item
type ProcessResult struct {
	Feedback       domain.Feedback
	Classification domain.ClassificationResult
	// Category is the stored category that was committed, if any.
	Category *domain.Category
	Error    error
}

// BatchConfig configures a BatchProcessor.
type BatchConfig struct {
	Concurrency int
	Policy      CommitPolicy
	// ApplyRules runs operator keyword rules after the engine.
	ApplyRules bool
}

// BatchProcessor classifies batches of feedback using a worker pool.
type BatchProcessor struct {
	classifier  Classifier
	feedback    FeedbackStore
	categories  CategoryResolver
	rules       RuleSource
	limiter     *RateLimiter
	concurrency int
	policy      CommitPolicy
	applyRules  bool
	logger      infralogger.Logger
	telemetry   *telemetry.Provider
	now         func() time.Time
}

// NewBatchProcessor creates a new batch processor. A nil limiter leaves writes
// unthrottled; rules may be nil when cfg.ApplyRules is false.
func NewBatchProcessor(
	c Classifier,
	feedback FeedbackStore,
	categories CategoryResolver,
	rules RuleSource,
	limiter *RateLimiter,
	cfg BatchConfig,
	logger infralogger.Logger,
	tp *telemetry.Provider,
) *BatchProcessor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultWorkerConcurrency
	}
	if logger == nil {
		logger = infralogger.NewNop()
	}

	return &BatchProcessor{
		classifier:  c,
		feedback:    feedback,
		categories:  categories,
		rules:       rules,
		limiter:     limiter,
		concurrency: cfg.Concurrency,
		policy:      cfg.Policy,
		applyRules:  cfg.ApplyRules && rules != nil,
		logger:      logger,
		telemetry:   tp,
		now:         time.Now,
	}
}

// Process classifies items with the worker pool and writes every result back. Per-item
// failures are reported in the results, not as the returned error.
func (b *BatchProcessor) Process(ctx context.Context, items []domain.Feedback) ([]*ProcessResult, error) {
	if len(items) == 0 {
		return []*ProcessResult{}, nil
	}

	rules, err := b.loadRules(ctx)
	if err != nil {
		return nil, err
	}

	b.logger.Info("Starting batch processing",
		infralogger.Int("batch_size", len(items)),
		infralogger.Int("concurrency", b.concurrency),
	)
	b.telemetry.RecordBatchSize(len(items))

	startTime := time.Now()

	jobs := make(chan domain.Feedback, len(items))
	results := make(chan *ProcessResult, len(items))

	workers := min(b.concurrency, len(items))
	b.telemetry.SetActiveWorkers(workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go b.worker(ctx, i, rules, jobs, results, &wg)
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)

	wg.Wait()
	close(results)
	b.telemetry.SetActiveWorkers(0)

	processResults := make([]*ProcessResult, 0, len(items))
	for result := range results {
		processResults = append(processResults, result)
	}

	duration := time.Since(startTime)
	successCount := 0
	committedCount := 0
	for _, result := range processResults {
		if result.Error != nil {
			continue
		}
		successCount++
		if result.Category != nil {
			committedCount++
		}
	}

	b.logger.Info("Batch processing complete",
		infralogger.Int("total", len(items)),
		infralogger.Int("success", successCount),
		infralogger.Int("categorized", committedCount),
		infralogger.Int("errors", len(processResults)-successCount),
		infralogger.Int64("duration_ms", duration.Milliseconds()),
	)

	return processResults, nil
}

func (b *BatchProcessor) loadRules(ctx context.Context) ([]domain.KeywordRule, error) {
	if !b.applyRules {
		return nil, nil
	}
	rules, err := b.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword rules: %w", err)
	}
	return rules, nil
}

// worker processes items from the jobs channel
func (b *BatchProcessor) worker(
	ctx context.Context,
	id int,
	rules []domain.KeywordRule,
	jobs <-chan domain.Feedback,
	results chan<- *ProcessResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for item := range jobs {
		if ctx.Err() != nil {
			results <- &ProcessResult{Feedback: item, Error: ctx.Err()}
			continue
		}
		results <- b.processSafely(ctx, id, rules, item)
	}
}

func (b *BatchProcessor) processSafely(
	ctx context.Context,
	workerID int,
	rules []domain.KeywordRule,
	item domain.Feedback,
) (result *ProcessResult) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Worker panic recovered",
				infralogger.Int("worker_id", workerID),
				infralogger.Int64("feedback_id", item.ID),
				infralogger.Any("panic", r),
			)
			result = &ProcessResult{Feedback: item, Error: fmt.Errorf("panic: %v", r)}
		}
	}()
	return b.processItem(ctx, rules, item)
}

// processItem classifies one feedback item and writes the outcome back.
func (b *BatchProcessor) processItem(ctx context.Context, rules []domain.KeywordRule, item domain.Feedback) *ProcessResult {
	b.telemetry.RecordPollerLag(ctx, item.CreatedAt)

	classification := b.classifier.ClassifyWithRules(ctx, item.Content, rules)
	result := &ProcessResult{Feedback: item, Classification: classification}

	update := database.FeedbackUpdate{
		FeedbackID:   item.ID,
		ClassifiedAt: b.now(),
	}
	if classification.Priority != item.Priority {
		update.Priority = &classification.Priority
	}

	if b.policy.Accepts(classification) {
		category, err := b.categories.FindByName(ctx, *classification.Category)
		switch {
		case err == nil:
			result.Category = category
			update.CategoryID = &category.ID
		case errors.Is(err, database.ErrNotFound):
			b.logger.Warn("No stored category matches classification",
				infralogger.Int64("feedback_id", item.ID),
				infralogger.String("category", *classification.Category),
			)
		default:
			b.logger.Warn("Category lookup failed",
				infralogger.Int64("feedback_id", item.ID),
				infralogger.String("category", *classification.Category),
				infralogger.Error(err),
			)
		}
	}

	update.Log = &domain.FeedbackLog{
		Action:  domain.FeedbackLogActionCategorized,
		Details: logDetails(result.Category, classification.Confidence, classification.Priority),
	}

	if err := b.write(ctx, update); err != nil {
		result.Category = nil
		result.Error = err
		b.telemetry.RecordFeedbackFailure(ctx)
		b.logger.Error("Failed to write classification",
			infralogger.Int64("feedback_id", item.ID),
			infralogger.String("content_preview", contentPreview(item.Content)),
			infralogger.Error(err),
		)
		return result
	}

	if update.Priority != nil {
		b.telemetry.RecordCommit(ctx, "priority")
	}
	if result.Category != nil {
		b.telemetry.RecordCommit(ctx, "category")
	}

	b.logger.Debug("Feedback classified",
		infralogger.Int64("feedback_id", item.ID),
		infralogger.String("category", classification.CategoryName()),
		infralogger.Float64("confidence", classification.Confidence),
		infralogger.String("priority", string(classification.Priority)),
		infralogger.String("strategy", classification.Strategy),
		infralogger.Bool("category_committed", result.Category != nil),
	)
	return result
}

func (b *BatchProcessor) write(ctx context.Context, update database.FeedbackUpdate) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("write throttled: %w", err)
		}
	}
	if err := b.feedback.ApplyClassification(ctx, update); err != nil {
		return fmt.Errorf("apply classification: %w", err)
	}
	return nil
}

// Stats returns the processor configuration for the ops API.
func (b *BatchProcessor) Stats() map[string]any {
	return map[string]any{
		"concurrency":          b.concurrency,
		"apply_rules":          b.applyRules,
		"category_threshold":   b.policy.CategoryThreshold,
		"fallback_threshold":   b.policy.FallbackThreshold,
		"use_keyword_fallback": b.policy.UseKeywordsFallback,
	}
}
