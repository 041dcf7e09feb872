package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

const (
	// DefaultVersion is the version tag of models created by CreateAndTrain.
	DefaultVersion = "1.0"
	// DefaultTestSize is the held-out fraction used by CreateAndTrain.
	DefaultTestSize = 0.2
	// DefaultMinSamples is the per-category minimum when none is configured.
	DefaultMinSamples = 5

	minCategories = 2
)

// InsufficientDataError lists the categories that kept a training run from starting.
// It matches nlp.ErrInsufficientTrainingData.
type InsufficientDataError struct {
	MinSamples int
	Categories []string
	Reason     string
}

func (e *InsufficientDataError) Error() string {
	if e.Reason != "" {
		return "insufficient training data: " + e.Reason
	}
	return fmt.Sprintf("insufficient training data: categories below %d examples: %s",
		e.MinSamples, strings.Join(e.Categories, ", "))
}

func (e *InsufficientDataError) Unwrap() error {
	return nlp.ErrInsufficientTrainingData
}

// Train fits a new pipeline for an existing registry entry, evaluates it on the training
// examples, and swaps the stored blob. Predictions keep using the previous pipeline until
// the new one is stored. A second Train on the same model while one runs fails with
// ErrTrainingInProgress.
func (r *Registry) Train(ctx context.Context, modelID int64, examples []nlp.Example) (domain.Metrics, error) {
	if err := r.beginTraining(modelID); err != nil {
		return domain.Metrics{}, err
	}
	defer r.endTraining(modelID)

	ctx, end := r.startSpan(ctx, "registry.train", modelID)
	defer end()

	start := r.now()
	metrics, err := r.train(ctx, modelID, examples)
	r.telemetry.RecordTraining(ctx, err == nil, time.Since(start))
	if err != nil {
		r.logger.Error("Model training failed",
			infralogger.Int64("model_id", modelID),
			infralogger.Int("examples", len(examples)),
			infralogger.Error(err),
		)
		return domain.Metrics{}, err
	}

	r.logger.Info("Model trained",
		infralogger.Int64("model_id", modelID),
		infralogger.Int("training_data_size", metrics.Size),
		infralogger.Float64("accuracy", metrics.Accuracy),
		infralogger.Float64("f1_score", metrics.F1),
	)
	return metrics, nil
}

func (r *Registry) train(ctx context.Context, modelID int64, examples []nlp.Example) (domain.Metrics, error) {
	m, err := r.Get(ctx, modelID)
	if err != nil {
		return domain.Metrics{}, err
	}

	if err = r.checkSamples(examples); err != nil {
		return domain.Metrics{}, err
	}

	p := nlp.NewPipeline(r.cfg.Pipeline)
	if err = p.Fit(examples); err != nil {
		return domain.Metrics{}, fmt.Errorf("fit model %d: %w", modelID, err)
	}

	metrics, err := p.Evaluate(examples)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("evaluate model %d: %w", modelID, err)
	}
	metrics.Size = len(examples)

	previousKey := m.BlobKey
	key, err := r.storePipeline(ctx, p)
	if err != nil {
		return domain.Metrics{}, err
	}

	m.ApplyMetrics(metrics, key, r.now())
	if err = r.models.UpdateTraining(ctx, m); err != nil {
		r.deleteBlob(ctx, key)
		return domain.Metrics{}, fmt.Errorf("update model %d: %w", modelID, err)
	}

	r.Invalidate(modelID)
	if previousKey != "" && previousKey != key {
		r.deleteBlob(ctx, previousKey)
	}
	return metrics, nil
}

// checkSamples fails when any category present has fewer examples than the configured
// minimum.
func (r *Registry) checkSamples(examples []nlp.Example) error {
	if len(examples) == 0 {
		return &InsufficientDataError{Reason: "no examples"}
	}
	minSamples := r.cfg.MinSamplesPerCategory
	if minSamples <= 0 {
		return nil
	}
	_, skipped := nlp.FilterByMinSamples(examples, minSamples)
	if len(skipped) > 0 {
		return &InsufficientDataError{MinSamples: minSamples, Categories: skipped}
	}
	return nil
}

// CreateRequest describes a model built from scratch by CreateAndTrain.
type CreateRequest struct {
	Name        string
	Description string
	// ModelType defaults to domain.DefaultModelType.
	ModelType string
	Examples  []nlp.Example
	// MinSamples overrides the configured per-category minimum when positive.
	MinSamples int
	// TestSize overrides the configured held-out fraction when positive.
	TestSize float64
	Activate bool
}

// TrainingReport is the outcome of CreateAndTrain.
type TrainingReport struct {
	Model   *domain.Model
	Metrics domain.Metrics
	// Skipped lists categories dropped for having too few examples.
	Skipped   []string
	TrainSize int
	TestSize  int
}

// CreateAndTrain drops under-represented categories, splits the rest into stratified
// train and test sets, fits on the first, evaluates on the second, and registers the
// result as a new model. With req.Activate the new model replaces the active one.
func (r *Registry) CreateAndTrain(ctx context.Context, req CreateRequest) (*TrainingReport, error) {
	ctx, end := r.startSpan(ctx, "registry.create_and_train", 0)
	defer end()

	start := r.now()
	report, err := r.createAndTrain(ctx, req)
	r.telemetry.RecordTraining(ctx, err == nil, time.Since(start))
	if err != nil {
		r.logger.Error("Model creation failed",
			infralogger.String("name", req.Name),
			infralogger.Int("examples", len(req.Examples)),
			infralogger.Error(err),
		)
		return nil, err
	}

	r.logger.Info("Model created",
		infralogger.Int64("model_id", report.Model.ID),
		infralogger.String("name", report.Model.Name),
		infralogger.Int("train_size", report.TrainSize),
		infralogger.Int("test_size", report.TestSize),
		infralogger.Strings("skipped_categories", report.Skipped),
		infralogger.Float64("accuracy", report.Metrics.Accuracy),
		infralogger.Bool("active", report.Model.IsActive),
	)
	return report, nil
}

func (r *Registry) createAndTrain(ctx context.Context, req CreateRequest) (*TrainingReport, error) {
	minSamples := req.MinSamples
	if minSamples <= 0 {
		minSamples = r.cfg.MinSamplesPerCategory
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	testSize := req.TestSize
	if testSize <= 0 {
		testSize = r.cfg.TestSize
	}
	if testSize <= 0 || testSize >= 1 {
		testSize = DefaultTestSize
	}

	kept, skipped := nlp.FilterByMinSamples(req.Examples, minSamples)
	if countCategories(kept) < minCategories {
		return nil, &InsufficientDataError{
			MinSamples: minSamples,
			Categories: skipped,
			Reason:     fmt.Sprintf("need at least %d categories with %d examples each", minCategories, minSamples),
		}
	}

	train, test := nlp.StratifiedSplit(kept, testSize, r.cfg.Seed)

	p := nlp.NewPipeline(r.cfg.Pipeline)
	if err := p.Fit(train); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	evalSet := test
	if len(evalSet) == 0 {
		evalSet = train
	}
	metrics, err := p.Evaluate(evalSet)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}
	metrics.Size = len(train)

	key, err := r.storePipeline(ctx, p)
	if err != nil {
		return nil, err
	}

	modelType := req.ModelType
	if modelType == "" {
		modelType = domain.DefaultModelType
	}
	m := &domain.Model{
		Name:        req.Name,
		Description: req.Description,
		ModelType:   modelType,
		Version:     DefaultVersion,
	}
	m.ApplyMetrics(metrics, key, r.now())

	if err = r.models.Create(ctx, m); err != nil {
		r.deleteBlob(ctx, key)
		return nil, fmt.Errorf("create model: %w", err)
	}

	if req.Activate {
		if err = r.models.Activate(ctx, m.ID); err != nil {
			return nil, fmt.Errorf("activate model %d: %w", m.ID, err)
		}
		m.IsActive = true
	}

	return &TrainingReport{
		Model:     m,
		Metrics:   metrics,
		Skipped:   skipped,
		TrainSize: len(train),
		TestSize:  len(test),
	}, nil
}

func (r *Registry) storePipeline(ctx context.Context, p *nlp.Pipeline) (string, error) {
	data, err := p.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize model: %w", err)
	}
	key := "model_" + uuid.NewString()
	if err = r.blobs.Save(ctx, key, data); err != nil {
		return "", fmt.Errorf("save model blob: %w", err)
	}
	return key, nil
}

func (r *Registry) deleteBlob(ctx context.Context, key string) {
	if err := r.blobs.Delete(ctx, key); err != nil && !errors.Is(err, nlp.ErrSerialization) {
		r.logger.Warn("Failed to delete model blob",
			infralogger.String("blob_key", key),
			infralogger.Error(err),
		)
	}
}

func countCategories(examples []nlp.Example) int {
	seen := make(map[string]struct{})
	for _, ex := range examples {
		seen[ex.Category] = struct{}{}
	}
	return len(seen)
}
