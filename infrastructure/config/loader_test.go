package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/infrastructure/config"
)

type sampleConfig struct {
	Name      string        `yaml:"name"`
	Threshold float64       `env:"SAMPLE_THRESHOLD" yaml:"threshold"`
	Enabled   bool          `env:"SAMPLE_ENABLED"   yaml:"enabled"`
	Interval  time.Duration `env:"SAMPLE_INTERVAL"  yaml:"interval"`
	Nested    struct {
		Tags []string `env:"SAMPLE_TAGS" yaml:"tags"`
	} `yaml:"nested"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWithDefaults_EnvWinsOverFileAndDefaults(t *testing.T) {
	path := writeConfig(t, "name: sample\nthreshold: 0.4\n")
	t.Setenv("SAMPLE_THRESHOLD", "0.25")
	t.Setenv("SAMPLE_ENABLED", "yes")
	t.Setenv("SAMPLE_INTERVAL", "90s")
	t.Setenv("SAMPLE_TAGS", "a, b ,c")

	cfg, err := config.LoadWithDefaults[sampleConfig](path, func(c *sampleConfig) {
		if c.Threshold == 0 {
			c.Threshold = 0.9
		}
	})
	require.NoError(t, err)

	assert.Equal(t, "sample", cfg.Name)
	assert.InDelta(t, 0.25, cfg.Threshold, 1e-9)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Interval)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Nested.Tags)
}

func TestLoadWithDefaults_DefaultsFillZeroFields(t *testing.T) {
	path := writeConfig(t, "name: sample\n")

	cfg, err := config.LoadWithDefaults[sampleConfig](path, func(c *sampleConfig) {
		if c.Threshold == 0 {
			c.Threshold = 0.3
		}
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, cfg.Threshold, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load[sampleConfig](filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yml", config.GetConfigPath("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/feedback/config.yml")
	assert.Equal(t, "/etc/feedback/config.yml", config.GetConfigPath("config.yml"))
}

func TestValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, config.ValidatePort("service.port", 8070))
	assert.Error(t, config.ValidatePort("service.port", 0))
	assert.NoError(t, config.ValidateLogLevel("warn"))
	assert.Error(t, config.ValidateLogLevel("verbose"))
	assert.NoError(t, config.ValidateUnitInterval("nlp.threshold", 0.5))
	assert.Error(t, config.ValidateUnitInterval("nlp.threshold", 1.5))
	assert.Error(t, config.ValidatePositive("nlp.keyword_weight", 0))
}

func TestApplyEnvOverrides_PointerFields(t *testing.T) {
	type withPointer struct {
		Fallback *bool `env:"SAMPLE_FALLBACK"`
	}

	t.Setenv("SAMPLE_FALLBACK", "false")

	var cfg withPointer
	config.ApplyEnvOverrides(&cfg)
	require.NotNil(t, cfg.Fallback)
	assert.False(t, *cfg.Fallback)
}
