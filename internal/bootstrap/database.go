package bootstrap

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/yaroing/feedback-platform/internal/config"
	"github.com/yaroing/feedback-platform/internal/database"
	infracontext "github.com/yaroing/feedback-platform/infrastructure/context"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

// DatabaseComponents holds database connection and repositories.
type DatabaseComponents struct {
	DB           *sqlx.DB
	Models       *database.ModelRepository
	Categories   *database.CategoryRepository
	Rules        *database.KeywordRuleRepository
	TrainingData *database.TrainingDataRepository
	Feedback     *database.FeedbackRepository
}

// SetupDatabase creates database connection and repositories.
func SetupDatabase(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*DatabaseComponents, error) {
	dbConfig := database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     strconv.Itoa(cfg.Database.Port),
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		Path:     cfg.Database.Path,
		Migrate:  cfg.Database.Migrate,
	}

	if dbConfig.Driver == database.DriverSQLite {
		logger.Info("Opening SQLite database", infralogger.String("path", dbConfig.Path))
	} else {
		logger.Info("Connecting to PostgreSQL database",
			infralogger.String("host", dbConfig.Host),
			infralogger.String("port", dbConfig.Port),
			infralogger.String("database", dbConfig.DBName),
		)
	}

	pingCtx, cancel := infracontext.WithPingTimeout(ctx)
	defer cancel()

	db, err := database.Open(pingCtx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Database connected successfully", infralogger.Bool("migrated", dbConfig.Migrate))

	return newDatabaseComponents(db), nil
}

func newDatabaseComponents(db *sqlx.DB) *DatabaseComponents {
	return &DatabaseComponents{
		DB:           db,
		Models:       database.NewModelRepository(db),
		Categories:   database.NewCategoryRepository(db),
		Rules:        database.NewKeywordRuleRepository(db),
		TrainingData: database.NewTrainingDataRepository(db),
		Feedback:     database.NewFeedbackRepository(db),
	}
}
