package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "service:\n  name: feedback-classifier\n"))
	require.NoError(t, err)

	assert.Equal(t, 8071, cfg.Service.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, config.BlobBackendRedis, cfg.Storage.Backend)
	assert.InDelta(t, 0.3, cfg.NLP.EngineConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.2, cfg.NLP.CategoryConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.1, cfg.NLP.CategoryFallbackThreshold, 1e-9)
	assert.True(t, cfg.NLP.KeywordsFallback())
	assert.InDelta(t, 1.5, cfg.NLP.KeywordWeight, 1e-9)
	assert.Equal(t, 5000, cfg.NLP.MaxFeatures)
	assert.Equal(t, uint64(42), cfg.NLP.RandomSeed)
	assert.Equal(t, "TF-IDF + MultinomialNB", cfg.NLP.ModelType)
	assert.Equal(t, "@hourly", cfg.Maintenance.Schedule)
	assert.Equal(t, 30, cfg.Maintenance.RetrainAfterDays)
	assert.Equal(t, 100, cfg.Maintenance.MinExamplesForAutoTrain)
	assert.Equal(t, 30*time.Second, cfg.Processor.PollInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitFalseFallbackSurvivesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "nlp:\n  use_keywords_fallback: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.NLP.KeywordsFallback())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NLP_CATEGORY_CONFIDENCE_THRESHOLD", "0.35")
	t.Setenv("NLP_USE_KEYWORDS_FALLBACK", "false")
	t.Setenv("DATABASE_DRIVER", "sqlite3")

	cfg, err := config.Load(writeConfig(t, "nlp:\n  category_confidence_threshold: 0.25\n"))
	require.NoError(t, err)

	assert.InDelta(t, 0.35, cfg.NLP.CategoryConfidenceThreshold, 1e-9)
	assert.False(t, cfg.NLP.KeywordsFallback())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "feedback.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*config.Config) {}, valid: true},
		{name: "threshold above one", mutate: func(c *config.Config) { c.NLP.EngineConfidenceThreshold = 1.2 }},
		{name: "unknown driver", mutate: func(c *config.Config) { c.Database.Driver = "mysql" }},
		{name: "test size of one", mutate: func(c *config.Config) { c.NLP.TestSize = 1 }},
		{name: "bad log level", mutate: func(c *config.Config) { c.Logging.Level = "verbose" }},
		{name: "redis without address", mutate: func(c *config.Config) { c.Redis.Address = "" }},
		{name: "database blobs", mutate: func(c *config.Config) {
			c.Storage.Backend = config.BlobBackendDatabase
			c.Redis.Address = ""
		}, valid: true},
		{name: "unknown blob backend", mutate: func(c *config.Config) { c.Storage.Backend = "s3" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, "service:\n  debug: false\n"))
			require.NoError(t, err)

			tt.mutate(cfg)
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestDefault_MatchesEmptyFile(t *testing.T) {
	fromFile, err := config.Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, fromFile, config.Default())
}
