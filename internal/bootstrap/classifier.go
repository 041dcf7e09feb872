package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/yaroing/feedback-platform/internal/api"
	"github.com/yaroing/feedback-platform/internal/classifier"
	"github.com/yaroing/feedback-platform/internal/config"
	"github.com/yaroing/feedback-platform/internal/maintenance"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/processor"
	"github.com/yaroing/feedback-platform/internal/registry"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	infragin "github.com/yaroing/feedback-platform/infrastructure/gin"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

// Components holds the wired classification service.
type Components struct {
	Config    *config.Config
	Logger    infralogger.Logger
	Telemetry *telemetry.Provider
	Database  *DatabaseComponents
	Blobs     *BlobComponents
	Registry  *registry.Registry
	Engine    *classifier.Engine
	Batch     *processor.BatchProcessor
	Poller    *processor.Poller
	Checker   *maintenance.Checker
}

// NewComponents connects storage and builds the registry, the engine and the feedback
// processor on top of it.
func NewComponents(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*Components, error) {
	db, err := SetupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	blobs, err := SetupBlobStore(cfg, db.DB, logger)
	if err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("setup blob store: %w", err)
	}

	tp := telemetry.NewProvider()

	reg := registry.New(db.Models, blobs.Store, registryConfig(cfg), logger, tp)
	engine := newEngine(cfg, reg, logger, tp)

	batch := processor.NewBatchProcessor(
		engine,
		db.Feedback,
		db.Categories,
		db.Rules,
		processor.NewRateLimiter(cfg.Processor.WriteRPS, cfg.Processor.WriteBurst, logger, tp),
		processor.BatchConfig{
			Concurrency: cfg.Processor.Concurrency,
			Policy: processor.CommitPolicy{
				CategoryThreshold:   cfg.NLP.CategoryConfidenceThreshold,
				FallbackThreshold:   cfg.NLP.CategoryFallbackThreshold,
				UseKeywordsFallback: cfg.NLP.KeywordsFallback(),
			},
			ApplyRules: cfg.Processor.ApplyRules,
		},
		logger,
		tp,
	)
	poller := processor.NewPoller(db.Feedback, batch, logger, processor.PollerConfig{
		BatchSize:    cfg.Processor.BatchSize,
		PollInterval: cfg.Processor.PollInterval,
	})

	checker := maintenance.NewChecker(reg, db.TrainingData, maintenance.Config{
		ModelType:               cfg.NLP.ModelType,
		RetrainAfterDays:        cfg.Maintenance.RetrainAfterDays,
		MinExamplesForAutoTrain: cfg.Maintenance.MinExamplesForAutoTrain,
	}, logger, tp)

	logger.Info("Classifier initialized",
		infralogger.String("model_type", cfg.NLP.ModelType),
		infralogger.Float64("engine_confidence_threshold", cfg.NLP.EngineConfidenceThreshold),
		infralogger.Float64("category_confidence_threshold", cfg.NLP.CategoryConfidenceThreshold),
		infralogger.Bool("use_keywords_fallback", cfg.NLP.KeywordsFallback()),
	)

	return &Components{
		Config:    cfg,
		Logger:    logger,
		Telemetry: tp,
		Database:  db,
		Blobs:     blobs,
		Registry:  reg,
		Engine:    engine,
		Batch:     batch,
		Poller:    poller,
		Checker:   checker,
	}, nil
}

func registryConfig(cfg *config.Config) registry.Config {
	return registry.Config{
		Pipeline: nlp.Config{
			MaxFeatures: cfg.NLP.MaxFeatures,
			Alpha:       cfg.NLP.SmoothingAlpha,
		},
		MinSamplesPerCategory: cfg.NLP.MinSamplesPerCategory,
		TestSize:              cfg.NLP.TestSize,
		Seed:                  cfg.NLP.RandomSeed,
	}
}

// newEngine orders the strategies: the active statistical model first, then the
// built-in keyword lists.
func newEngine(cfg *config.Config, source classifier.ModelSource, logger infralogger.Logger, tp *telemetry.Provider) *classifier.Engine {
	return classifier.NewEngine(classifier.EngineConfig{
		Strategies: []classifier.Strategy{
			classifier.NewStatisticalStrategy(source, cfg.NLP.ModelType, cfg.NLP.EngineConfidenceThreshold),
			classifier.NewKeywordStrategy(
				classifier.NewKeywordScorer(classifier.DefaultCategoryKeywords(), cfg.NLP.KeywordWeight),
			),
		},
		Priority:  classifier.NewPrioritySuggester(classifier.DefaultPriorityKeywords()),
		Rules:     classifier.NewRuleScorer(cfg.NLP.RuleAcceptanceThreshold),
		Logger:    logger,
		Telemetry: tp,
	})
}

// NewHTTPServer builds the ops server over the components.
func (c *Components) NewHTTPServer() *infragin.Server {
	deps := api.Dependencies{
		Classifier: c.Engine,
		Registry:   c.Registry,
		Rules:      c.Database.Rules,
		Categories: c.Database.Categories,
		Examples:   c.Database.TrainingData,
		Logs:       c.Database.Feedback,
	}
	if c.Config.Processor.Enabled {
		deps.Processor = c.Poller
	}

	health := api.HealthDeps{Database: c.Database.DB.PingContext, Redis: c.Blobs.Ping}
	return api.NewServer(api.NewHandler(deps, c.Logger), c.Config, c.Telemetry.Handler(), health, c.Logger)
}

// Close waits for pending usage writes, then releases storage connections.
func (c *Components) Close() error {
	c.Registry.Wait()
	return errors.Join(c.Blobs.Close(), c.Database.DB.Close())
}
