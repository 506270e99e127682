package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, KeywordBackendLocal, cfg.KeywordBackend)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ClassifierHost)
	assert.Equal(t, "qwen2.5:3b", cfg.ClassifierModel)
	assert.Equal(t, 15, cfg.MaxKeywords)
	assert.Equal(t, 3, cfg.NGramSize)
	assert.Equal(t, 0.7, cfg.MinConfidence)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, KeywordBackendLocal, cfg.KeywordBackend)
		assert.Equal(t, 15, cfg.MaxKeywords)
	})

	t.Run("with llm backend", func(t *testing.T) {
		cfg := NewConfig(
			WithKeywordBackend(KeywordBackendLLM),
			WithClassifierHost("http://classify:9090/v1"),
			WithClassifierModel("gpt-4o-mini"),
		)

		assert.Equal(t, KeywordBackendLLM, cfg.KeywordBackend)
		assert.Equal(t, "http://classify:9090/v1", cfg.ClassifierHost)
		assert.Equal(t, "gpt-4o-mini", cfg.ClassifierModel)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithMaxKeywords(5),
			WithNGramSize(2),
			WithMinConfidence(0.5),
		)

		assert.Equal(t, 5, cfg.MaxKeywords)
		assert.Equal(t, 2, cfg.NGramSize)
		assert.Equal(t, 0.5, cfg.MinConfidence)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name            string
		classifierHost  string
		backend         string
		expectedHost    string
		expectedBackend string
	}{
		{
			name:            "already has /v1",
			classifierHost:  "http://localhost:11434/v1",
			backend:         "llm",
			expectedHost:    "http://localhost:11434/v1",
			expectedBackend: "llm",
		},
		{
			name:            "missing /v1",
			classifierHost:  "http://localhost:11434",
			backend:         "LLM",
			expectedHost:    "http://localhost:11434/v1",
			expectedBackend: "llm",
		},
		{
			name:            "has trailing slash",
			classifierHost:  "http://localhost:11434/",
			backend:         " local ",
			expectedHost:    "http://localhost:11434/v1",
			expectedBackend: "local",
		},
		{
			name:            "empty host",
			classifierHost:  "",
			backend:         "local",
			expectedHost:    "",
			expectedBackend: "local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				ClassifierHost: tt.classifierHost,
				KeywordBackend: tt.backend,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedHost, cfg.ClassifierHost)
			assert.Equal(t, tt.expectedBackend, cfg.KeywordBackend)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			KeywordBackend:  KeywordBackendLLM,
			ClassifierHost:  "http://localhost:11434",
			ClassifierModel: "qwen2.5:3b",
			MaxKeywords:     15,
			NGramSize:       3,
			MinConfidence:   0.7,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.ClassifierHost)
	})

	t.Run("local backend ignores classifier", func(t *testing.T) {
		cfg := valid()
		cfg.KeywordBackend = KeywordBackendLocal
		cfg.ClassifierHost = ""
		cfg.ClassifierModel = ""

		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown backend", func(c *Config) { c.KeywordBackend = "yake" }, "KeywordBackend"},
		{"missing classifier host", func(c *Config) { c.ClassifierHost = "" }, "ClassifierHost"},
		{"missing classifier model", func(c *Config) { c.ClassifierModel = "" }, "ClassifierModel"},
		{"zero max keywords", func(c *Config) { c.MaxKeywords = 0 }, "MaxKeywords"},
		{"ngram too small", func(c *Config) { c.NGramSize = 0 }, "NGramSize"},
		{"ngram too large", func(c *Config) { c.NGramSize = 6 }, "NGramSize"},
		{"confidence too low", func(c *Config) { c.MinConfidence = -0.1 }, "MinConfidence"},
		{"confidence too high", func(c *Config) { c.MinConfidence = 1.5 }, "MinConfidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("confidence at boundaries", func(t *testing.T) {
		cfg := valid()
		cfg.MinConfidence = 0
		assert.NoError(t, cfg.Validate())

		cfg.MinConfidence = 1
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfigValidate_Integration(t *testing.T) {
	// Test that NewConfig produces a valid configuration
	cfg := NewConfig()
	err := cfg.Validate()
	require.NoError(t, err)

	// Test that DefaultConfig produces a valid configuration
	cfg = DefaultConfig()
	err = cfg.Validate()
	require.NoError(t, err)
}
