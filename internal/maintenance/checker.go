// Package maintenance keeps the model registry healthy: it activates a model when none
// is active, retrains a stale active model, and trains models that have never been
// trained once enough validated examples exist.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/registry"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

const (
	// DefaultRetrainAfterDays is the age in whole days past which the active model is retrained.
	DefaultRetrainAfterDays = 30
	// DefaultMinExamplesForAutoTrain gates the first training of an untrained model.
	DefaultMinExamplesForAutoTrain = 100

	day = 24 * time.Hour
)

// Actions recorded in Report and telemetry.
const (
	ActionActivated = "activated"
	ActionRetrained = "retrained"
	ActionTrained   = "trained"
)

// Registry is the model registry as seen by the checker.
type Registry interface {
	List(ctx context.Context) ([]domain.Model, error)
	Activate(ctx context.Context, modelID int64) error
	Train(ctx context.Context, modelID int64, examples []nlp.Example) (domain.Metrics, error)
}

// ExampleSource supplies validated training examples.
type ExampleSource interface {
	ListValidated(ctx context.Context) ([]domain.TrainingExample, error)
	CountValidated(ctx context.Context) (int, error)
}

// Config tunes the checker.
type Config struct {
	ModelType               string
	RetrainAfterDays        int
	MinExamplesForAutoTrain int
}

// Report lists what one Run did.
type Report struct {
	Activated []int64
	Retrained []int64
	Trained   []int64
	Skipped   []int64
}

// Checker runs the periodic model maintenance.
type Checker struct {
	registry  Registry
	examples  ExampleSource
	cfg       Config
	logger    infralogger.Logger
	telemetry *telemetry.Provider
	now       func() time.Time
}

// NewChecker creates a checker. Zero config fields take the defaults.
func NewChecker(reg Registry, examples ExampleSource, cfg Config, logger infralogger.Logger, tp *telemetry.Provider) *Checker {
	if cfg.ModelType == "" {
		cfg.ModelType = domain.DefaultModelType
	}
	if cfg.RetrainAfterDays <= 0 {
		cfg.RetrainAfterDays = DefaultRetrainAfterDays
	}
	if cfg.MinExamplesForAutoTrain <= 0 {
		cfg.MinExamplesForAutoTrain = DefaultMinExamplesForAutoTrain
	}
	if logger == nil {
		logger = infralogger.NewNop()
	}
	return &Checker{
		registry:  reg,
		examples:  examples,
		cfg:       cfg,
		logger:    logger,
		telemetry: tp,
		now:       time.Now,
	}
}

// Run performs one maintenance pass. Training failures of individual models are
// collected into the returned error; the pass continues past them.
func (c *Checker) Run(ctx context.Context) (Report, error) {
	var report Report

	all, err := c.registry.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list models: %w", err)
	}
	models := make([]domain.Model, 0, len(all))
	for _, m := range all {
		if m.ModelType == c.cfg.ModelType {
			models = append(models, m)
		}
	}

	var errs []error

	active := findActive(models)
	if active == nil {
		if best := bestTrained(models); best != nil {
			if activateErr := c.registry.Activate(ctx, best.ID); activateErr != nil {
				errs = append(errs, fmt.Errorf("activate model %d: %w", best.ID, activateErr))
			} else {
				report.Activated = append(report.Activated, best.ID)
				c.telemetry.RecordMaintenanceAction(ctx, ActionActivated)
				c.logger.Info("Model activated automatically",
					infralogger.Int64("model_id", best.ID),
					infralogger.Float64("f1_score", best.F1Score),
				)
			}
		}
	} else if c.stale(active) {
		c.logger.Info("Retraining stale active model",
			infralogger.Int64("model_id", active.ID),
			infralogger.Int("days_since_training", c.daysSince(*active.LastTrained)),
		)
		if trainErr := c.train(ctx, active.ID, ActionRetrained, &report); trainErr != nil {
			errs = append(errs, trainErr)
		}
	}

	untrained := untrainedModels(models)
	if len(untrained) > 0 {
		count, countErr := c.examples.CountValidated(ctx)
		switch {
		case countErr != nil:
			errs = append(errs, fmt.Errorf("count validated examples: %w", countErr))
		case count >= c.cfg.MinExamplesForAutoTrain:
			for _, m := range untrained {
				c.logger.Info("Training untrained model",
					infralogger.Int64("model_id", m.ID),
					infralogger.Int("validated_examples", count),
				)
				if trainErr := c.train(ctx, m.ID, ActionTrained, &report); trainErr != nil {
					errs = append(errs, trainErr)
				}
			}
		default:
			c.logger.Debug("Not enough validated examples for automatic training",
				infralogger.Int("validated_examples", count),
				infralogger.Int("required", c.cfg.MinExamplesForAutoTrain),
			)
		}
	}

	if len(errs) > 0 {
		err = errors.Join(errs...)
		c.logger.Error("Model maintenance finished with errors", infralogger.Error(err))
	}
	return report, err
}

func (c *Checker) train(ctx context.Context, modelID int64, action string, report *Report) error {
	training, err := c.examples.ListValidated(ctx)
	if err != nil {
		return fmt.Errorf("list validated examples: %w", err)
	}

	metrics, err := c.registry.Train(ctx, modelID, registry.ExamplesFrom(training))
	if errors.Is(err, registry.ErrTrainingInProgress) {
		report.Skipped = append(report.Skipped, modelID)
		c.logger.Info("Model already training, skipped", infralogger.Int64("model_id", modelID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("train model %d: %w", modelID, err)
	}

	switch action {
	case ActionRetrained:
		report.Retrained = append(report.Retrained, modelID)
	default:
		report.Trained = append(report.Trained, modelID)
	}
	c.telemetry.RecordMaintenanceAction(ctx, action)
	c.logger.Info("Model trained by maintenance",
		infralogger.Int64("model_id", modelID),
		infralogger.String("action", action),
		infralogger.Float64("accuracy", metrics.Accuracy),
		infralogger.Int("training_data_size", metrics.Size),
	)
	return nil
}

// stale reports whether m was trained more than RetrainAfterDays whole days ago.
func (c *Checker) stale(m *domain.Model) bool {
	if !m.IsTrained || m.LastTrained == nil {
		return false
	}
	return c.daysSince(*m.LastTrained) > c.cfg.RetrainAfterDays
}

func (c *Checker) daysSince(t time.Time) int {
	return int(c.now().Sub(t) / day)
}

func findActive(models []domain.Model) *domain.Model {
	for i := range models {
		if models[i].IsActive {
			return &models[i]
		}
	}
	return nil
}

// bestTrained returns the trained model with the highest F1; ties keep the first listed.
func bestTrained(models []domain.Model) *domain.Model {
	var best *domain.Model
	for i := range models {
		m := &models[i]
		if !m.IsTrained {
			continue
		}
		if best == nil || m.F1Score > best.F1Score {
			best = m
		}
	}
	return best
}

func untrainedModels(models []domain.Model) []domain.Model {
	var out []domain.Model
	for _, m := range models {
		if !m.IsTrained {
			out = append(out, m)
		}
	}
	return out
}
