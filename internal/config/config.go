package config

import (
	"errors"
	"time"

	infraconfig "github.com/yaroing/feedback-platform/infrastructure/config"
)

// Default configuration values.
const (
	defaultServiceName    = "feedback-classifier"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8071
	defaultDBDriver       = "postgres"
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBUser         = "postgres"
	defaultDBName         = "feedback"
	defaultDBSSLMode      = "disable"
	defaultSQLitePath     = "feedback.db"
	defaultRedisAddress   = "localhost:6379"
	defaultRedisKeyPrefix = "nlp_models:"
	defaultBlobBackend    = BlobBackendRedis
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultLogOutput      = "stdout"

	defaultEngineThreshold   = 0.3
	defaultCategoryThreshold = 0.2
	defaultFallbackThreshold = 0.1
	defaultKeywordWeight     = 1.5
	defaultRuleAcceptance    = 0.5
	defaultMaxFeatures       = 5000
	defaultSmoothingAlpha    = 1.0
	defaultMinSamples        = 5
	defaultTestSize          = 0.2
	defaultRandomSeed        = 42
	defaultModelType         = "TF-IDF + MultinomialNB"

	defaultSchedule         = "@hourly"
	defaultRetrainAfterDays = 30
	defaultMinAutoTrain     = 100

	defaultBatchSize    = 100
	defaultPollInterval = 30 * time.Second
	defaultConcurrency  = 4
	defaultWriteRPS     = 50
	defaultWriteBurst   = 10
)

// Model blob backends.
const (
	BlobBackendRedis    = "redis"
	BlobBackendDatabase = "database"
	BlobBackendMemory   = "memory"
)

// Config holds all configuration for the feedback classifier.
type Config struct {
	Service     ServiceConfig     `yaml:"service"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     LoggingConfig     `yaml:"logging"`
	NLP         NLPConfig         `yaml:"nlp"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Processor   ProcessorConfig   `yaml:"processor"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"CLASSIFIER_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"       yaml:"debug"`
}

// DatabaseConfig holds database configuration. Driver is postgres or sqlite3; Path
// only applies to sqlite3.
type DatabaseConfig struct {
	Driver   string `env:"DATABASE_DRIVER"   yaml:"driver"`
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
	Path     string `env:"SQLITE_PATH"       yaml:"path"`
	Migrate  bool   `env:"DATABASE_MIGRATE"  yaml:"migrate"`
}

// StorageConfig selects where trained model blobs live. The memory backend loses every
// model on exit.
type StorageConfig struct {
	Backend string `env:"MODEL_STORE_BACKEND" yaml:"backend"`
}

// RedisConfig holds the Redis blob store settings.
type RedisConfig struct {
	Address   string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password  string `env:"REDIS_PASSWORD" yaml:"password"`
	Database  int    `yaml:"database"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
	// Output is a zap sink: stdout, stderr or a file path.
	Output string `env:"LOG_OUTPUT" yaml:"output"`
}

// NLPConfig holds the classification and training settings.
type NLPConfig struct {
	EngineConfidenceThreshold   float64 `env:"NLP_ENGINE_CONFIDENCE_THRESHOLD"   yaml:"engine_confidence_threshold"`
	CategoryConfidenceThreshold float64 `env:"NLP_CATEGORY_CONFIDENCE_THRESHOLD" yaml:"category_confidence_threshold"`
	CategoryFallbackThreshold   float64 `env:"NLP_CATEGORY_FALLBACK_THRESHOLD"   yaml:"category_fallback_threshold"`
	// UseKeywordsFallback is a pointer so an explicit false in YAML survives defaults.
	UseKeywordsFallback     *bool   `env:"NLP_USE_KEYWORDS_FALLBACK" yaml:"use_keywords_fallback"`
	KeywordWeight           float64 `yaml:"keyword_weight"`
	RuleAcceptanceThreshold float64 `yaml:"rule_acceptance_threshold"`
	MaxFeatures             int     `yaml:"max_features"`
	SmoothingAlpha          float64 `yaml:"smoothing_alpha"`
	MinSamplesPerCategory   int     `yaml:"min_samples_per_category"`
	TestSize                float64 `yaml:"test_size"`
	RandomSeed              uint64  `yaml:"random_seed"`
	ModelType               string  `yaml:"model_type"`
}

// KeywordsFallback reports the effective use_keywords_fallback value.
func (n NLPConfig) KeywordsFallback() bool {
	return n.UseKeywordsFallback == nil || *n.UseKeywordsFallback
}

// MaintenanceConfig holds the model maintenance schedule.
type MaintenanceConfig struct {
	Enabled                 bool   `env:"MAINTENANCE_ENABLED"  yaml:"enabled"`
	Schedule                string `env:"MAINTENANCE_SCHEDULE" yaml:"schedule"`
	RetrainAfterDays        int    `yaml:"retrain_after_days"`
	MinExamplesForAutoTrain int    `yaml:"min_examples_for_auto_train"`
}

// ProcessorConfig holds the feedback poller settings.
type ProcessorConfig struct {
	Enabled      bool          `env:"PROCESSOR_ENABLED"     yaml:"enabled"`
	BatchSize    int           `yaml:"batch_size"`
	PollInterval time.Duration `env:"PROCESSOR_POLL_INTERVAL" yaml:"poll_interval"`
	Concurrency  int           `env:"PROCESSOR_CONCURRENCY" yaml:"concurrency"`
	WriteRPS     int           `yaml:"write_rps"`
	WriteBurst   int           `yaml:"write_burst"`
	ApplyRules   bool          `yaml:"apply_rules"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

// Default returns the built-in defaults with environment overrides applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	infraconfig.ApplyEnvOverrides(cfg)
	return cfg
}

// Validate checks ports, the log level and threshold ranges.
func (c *Config) Validate() error {
	errs := []error{
		infraconfig.ValidatePort("service.port", c.Service.Port),
		infraconfig.ValidateLogLevel(c.Logging.Level),
		infraconfig.ValidateUnitInterval("nlp.engine_confidence_threshold", c.NLP.EngineConfidenceThreshold),
		infraconfig.ValidateUnitInterval("nlp.category_confidence_threshold", c.NLP.CategoryConfidenceThreshold),
		infraconfig.ValidateUnitInterval("nlp.category_fallback_threshold", c.NLP.CategoryFallbackThreshold),
		infraconfig.ValidateUnitInterval("nlp.rule_acceptance_threshold", c.NLP.RuleAcceptanceThreshold),
		infraconfig.ValidatePositive("nlp.keyword_weight", c.NLP.KeywordWeight),
		infraconfig.ValidatePositive("nlp.smoothing_alpha", c.NLP.SmoothingAlpha),
		infraconfig.ValidatePositive("processor.write_rps", float64(c.Processor.WriteRPS)),
	}

	if c.NLP.TestSize < 0 || c.NLP.TestSize >= 1 {
		errs = append(errs, &infraconfig.ValidationError{Field: "nlp.test_size", Message: "must be in [0, 1)"})
	}

	switch c.Database.Driver {
	case "postgres":
		errs = append(errs, infraconfig.ValidateRequired("database.host", c.Database.Host))
	case "sqlite3":
		errs = append(errs, infraconfig.ValidateRequired("database.path", c.Database.Path))
	default:
		errs = append(errs, &infraconfig.ValidationError{Field: "database.driver", Message: "must be postgres or sqlite3"})
	}

	switch c.Storage.Backend {
	case BlobBackendRedis:
		errs = append(errs, infraconfig.ValidateRequired("redis.address", c.Redis.Address))
	case BlobBackendDatabase, BlobBackendMemory:
	default:
		errs = append(errs, &infraconfig.ValidationError{
			Field:   "storage.backend",
			Message: "must be redis, database or memory",
		})
	}

	return errors.Join(errs...)
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaultBlobBackend
	}
	setRedisDefaults(&cfg.Redis)
	setLoggingDefaults(&cfg.Logging)
	setNLPDefaults(&cfg.NLP)
	setMaintenanceDefaults(&cfg.Maintenance)
	setProcessorDefaults(&cfg.Processor)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = defaultDBDriver
	}
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.Path == "" {
		d.Path = defaultSQLitePath
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.KeyPrefix == "" {
		r.KeyPrefix = defaultRedisKeyPrefix
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
	if l.Output == "" {
		l.Output = defaultLogOutput
	}
}

func setNLPDefaults(n *NLPConfig) {
	if n.EngineConfidenceThreshold == 0 {
		n.EngineConfidenceThreshold = defaultEngineThreshold
	}
	if n.CategoryConfidenceThreshold == 0 {
		n.CategoryConfidenceThreshold = defaultCategoryThreshold
	}
	if n.CategoryFallbackThreshold == 0 {
		n.CategoryFallbackThreshold = defaultFallbackThreshold
	}
	if n.UseKeywordsFallback == nil {
		enabled := true
		n.UseKeywordsFallback = &enabled
	}
	if n.KeywordWeight == 0 {
		n.KeywordWeight = defaultKeywordWeight
	}
	if n.RuleAcceptanceThreshold == 0 {
		n.RuleAcceptanceThreshold = defaultRuleAcceptance
	}
	if n.MaxFeatures == 0 {
		n.MaxFeatures = defaultMaxFeatures
	}
	if n.SmoothingAlpha == 0 {
		n.SmoothingAlpha = defaultSmoothingAlpha
	}
	if n.MinSamplesPerCategory == 0 {
		n.MinSamplesPerCategory = defaultMinSamples
	}
	if n.TestSize == 0 {
		n.TestSize = defaultTestSize
	}
	if n.RandomSeed == 0 {
		n.RandomSeed = defaultRandomSeed
	}
	if n.ModelType == "" {
		n.ModelType = defaultModelType
	}
}

func setMaintenanceDefaults(m *MaintenanceConfig) {
	if m.Schedule == "" {
		m.Schedule = defaultSchedule
	}
	if m.RetrainAfterDays == 0 {
		m.RetrainAfterDays = defaultRetrainAfterDays
	}
	if m.MinExamplesForAutoTrain == 0 {
		m.MinExamplesForAutoTrain = defaultMinAutoTrain
	}
}

func setProcessorDefaults(p *ProcessorConfig) {
	if p.BatchSize == 0 {
		p.BatchSize = defaultBatchSize
	}
	if p.PollInterval == 0 {
		p.PollInterval = defaultPollInterval
	}
	if p.Concurrency == 0 {
		p.Concurrency = defaultConcurrency
	}
	if p.WriteRPS == 0 {
		p.WriteRPS = defaultWriteRPS
	}
	if p.WriteBurst == 0 {
		p.WriteBurst = defaultWriteBurst
	}
}
