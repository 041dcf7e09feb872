package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/yaroing/feedback-platform/internal/config"
	infraconfig "github.com/yaroing/feedback-platform/infrastructure/config"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

const serviceName = "feedback-classifier"

// LoadConfig loads and validates configuration. A missing file falls back to defaults.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = infraconfig.GetConfigPath("config.yml")
	}

	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("Warning: config file %s not found, using defaults", path)
		cfg = config.Default()
	case err != nil:
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config) (infralogger.Logger, error) {
	logger, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
		OutputPaths: []string{cfg.Logging.Output},
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.With(infralogger.String("service", serviceName)), nil
}
