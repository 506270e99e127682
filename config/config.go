// Package config loads newswire's runtime configuration from an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageBadger   = "badger"
	StoragePostgres = "postgres"
)

const (
	defaultDBPath          = "./newswire.db"
	defaultArticleInterval = 7200 * time.Second
	defaultSourceInterval  = 21600 * time.Second
	defaultAttemptDelay    = 5 * time.Second
	defaultRetryDelay      = 5 * time.Second
	defaultFailureBackoff  = 5 * time.Second
	defaultPollInterval    = time.Second
	defaultJoinTimeout     = 5 * time.Second
	defaultMaxAttempts     = 3
	defaultHTTPTimeout     = 30 * time.Second
	defaultMaxConns        = 4
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config defines all runtime configuration.
type Config struct {
	NewsAPI     NewsAPIConfig     `yaml:"newsapi"`
	Storage     StorageConfig     `yaml:"storage"`
	Keywords    KeywordsConfig    `yaml:"keywords"`
	Articles    LaneDefaults      `yaml:"articles"`
	Sources     LaneDefaults      `yaml:"sources"`
	Retry       RetryConfig       `yaml:"retry"`
	Supervision SupervisionConfig `yaml:"supervision"`
}

// NewsAPIConfig configures the provider client.
type NewsAPIConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig selects and configures the store.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	PostgresURL string `yaml:"postgres_url"`
	MaxConns    int    `yaml:"max_conns"`
}

// KeywordsConfig configures enrichment.
type KeywordsConfig struct {
	Backend            string  `yaml:"backend"`
	ClassifierHost     string  `yaml:"classifier_host"`
	ClassifierModel    string  `yaml:"classifier_model"`
	MaxKeywords        int     `yaml:"max_keywords"`
	NGramSize          int     `yaml:"ngram_size"`
	LanguageConfidence float64 `yaml:"language_confidence"`
	PoolSize           int     `yaml:"pool_size"`
}

// LaneDefaults applies to every lane of a pipeline.
type LaneDefaults struct {
	Interval time.Duration `yaml:"interval"`
	Schedule string        `yaml:"schedule"`
	PageSize int           `yaml:"page_size"`
	Country  string        `yaml:"country"`
	Language string        `yaml:"language"`
}

// RetryConfig bounds the retries of one cycle.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	AttemptDelay   time.Duration `yaml:"attempt_delay"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	FailureBackoff time.Duration `yaml:"failure_backoff"`
}

// SupervisionConfig tunes the orchestrator's liveness polling.
type SupervisionConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	JoinTimeout  time.Duration `yaml:"join_timeout"`
}

// Default returns a Config populated with default values.
func Default() Config {
	aiDefaults := ai.DefaultConfig()
	return Config{
		NewsAPI: NewsAPIConfig{
			BaseURL: "https://newsapi.org/v2",
			Timeout: defaultHTTPTimeout,
		},
		Storage: StorageConfig{
			Backend:  StorageBadger,
			Path:     defaultDBPath,
			MaxConns: defaultMaxConns,
		},
		Keywords: KeywordsConfig{
			Backend:            aiDefaults.KeywordBackend,
			ClassifierHost:     aiDefaults.ClassifierHost,
			ClassifierModel:    aiDefaults.ClassifierModel,
			MaxKeywords:        aiDefaults.MaxKeywords,
			NGramSize:          aiDefaults.NGramSize,
			LanguageConfidence: aiDefaults.MinConfidence,
		},
		Articles: LaneDefaults{
			Interval: defaultArticleInterval,
			PageSize: core.DefaultPageSize,
			Country:  core.DefaultCountry,
		},
		Sources: LaneDefaults{
			Interval: defaultSourceInterval,
		},
		Retry: RetryConfig{
			MaxAttempts:    defaultMaxAttempts,
			AttemptDelay:   defaultAttemptDelay,
			RetryDelay:     defaultRetryDelay,
			FailureBackoff: defaultFailureBackoff,
		},
		Supervision: SupervisionConfig{
			PollInterval: defaultPollInterval,
			JoinTimeout:  defaultJoinTimeout,
		},
	}
}

// Load reads configuration from path, or from NEWSWIRE_CONFIG when path is
// empty. Without either, defaults are used. Environment overrides are applied
// on top and the result is validated.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	if path == "" {
		path = getenv("NEWSWIRE_CONFIG")
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	cfg.applyEnvironment(getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvironment overrides file values with non-empty environment variables.
func (c *Config) applyEnvironment(getenv func(string) string) {
	overrides := []struct {
		name   string
		target *string
	}{
		{"NEWSAPI_API_KEY", &c.NewsAPI.APIKey},
		{"NEWSAPI_BASE_URL", &c.NewsAPI.BaseURL},
		{"NEWSWIRE_STORAGE", &c.Storage.Backend},
		{"NEWSWIRE_DB", &c.Storage.Path},
		{"NEWSWIRE_POSTGRES_URL", &c.Storage.PostgresURL},
		{"NEWSWIRE_KEYWORDS", &c.Keywords.Backend},
		{"NEWSWIRE_CLASSIFIER_HOST", &c.Keywords.ClassifierHost},
		{"NEWSWIRE_CLASSIFIER_MODEL", &c.Keywords.ClassifierModel},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(getenv(o.name)); v != "" {
			*o.target = v
		}
	}
}

// Validate ensures configuration is complete and valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NewsAPI.APIKey) == "" {
		return invalid("newsapi.api_key is required (or set NEWSAPI_API_KEY)")
	}
	if c.NewsAPI.BaseURL == "" {
		return invalid("newsapi.base_url must not be empty")
	}
	if c.NewsAPI.Timeout <= 0 {
		return invalid("newsapi.timeout must be positive")
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case StorageBadger:
		if c.Storage.Path == "" {
			return invalid("storage.path must not be empty")
		}
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return invalid("storage.postgres_url is required for the postgres backend")
		}
		if c.Storage.MaxConns < 1 {
			return invalid("storage.max_conns must be positive")
		}
	default:
		return invalid("storage.backend must be badger or postgres, got %q", c.Storage.Backend)
	}

	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Keywords.PoolSize < 0 {
		return invalid("keywords.pool_size must not be negative")
	}

	if err := c.Articles.validate("articles", true); err != nil {
		return err
	}
	if err := c.Sources.validate("sources", false); err != nil {
		return err
	}

	if c.Retry.MaxAttempts <= 0 {
		return invalid("retry.max_attempts must be positive")
	}
	if c.Retry.AttemptDelay < 0 || c.Retry.RetryDelay < 0 || c.Retry.FailureBackoff < 0 {
		return invalid("retry delays must not be negative")
	}
	if c.Supervision.PollInterval <= 0 || c.Supervision.JoinTimeout <= 0 {
		return invalid("supervision.poll_interval and supervision.join_timeout must be positive")
	}
	return nil
}

func (l LaneDefaults) validate(name string, paged bool) error {
	if l.Schedule != "" {
		if _, err := cron.ParseStandard(l.Schedule); err != nil {
			return invalid("%s.schedule: %v", name, err)
		}
	} else if l.Interval <= 0 {
		return invalid("%s.interval must be positive", name)
	}
	if paged && (l.PageSize < 1 || l.PageSize > core.MaxPageSize) {
		return invalid("%s.page_size must be between 1 and %d", name, core.MaxPageSize)
	}
	if l.Country != "" && !core.ValidCountries[l.Country] {
		return invalid("%s.country %q is not supported", name, l.Country)
	}
	if l.Language != "" && !core.ValidLanguages[l.Language] {
		return invalid("%s.language %q is not supported", name, l.Language)
	}
	return nil
}

// AIConfig returns the enrichment configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithKeywordBackend(c.Keywords.Backend),
		ai.WithClassifierHost(c.Keywords.ClassifierHost),
		ai.WithClassifierModel(c.Keywords.ClassifierModel),
		ai.WithMaxKeywords(c.Keywords.MaxKeywords),
		ai.WithNGramSize(c.Keywords.NGramSize),
		ai.WithMinConfidence(c.Keywords.LanguageConfidence),
	)
}

// Lane returns the lane template of a pipeline. The category is left empty;
// the orchestrator fills it per lane.
func (c *Config) Lane(pipeline core.Pipeline, once bool) core.LaneConfig {
	defaults := c.Articles
	if pipeline == core.PipelineSources {
		defaults = c.Sources
	}
	return core.LaneConfig{
		Pipeline: pipeline,
		Interval: defaults.Interval,
		Schedule: defaults.Schedule,
		PageSize: defaults.PageSize,
		Country:  defaults.Country,
		Language: defaults.Language,
		Once:     once,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
