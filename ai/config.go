// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"strings"
)

// Keyword extraction backends.
const (
	KeywordBackendLocal = "local"
	KeywordBackendLLM   = "llm"
)

// Config holds configuration for the enrichment services.
type Config struct {
	// KeywordBackend selects the keyword extractor: "local" for the built-in
	// statistical extractor, "llm" for an OpenAI-compatible model.
	// Default: "local"
	KeywordBackend string

	// ClassifierHost is the base URL for the keyword extraction model API.
	// Only used by the "llm" backend.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	ClassifierHost string

	// ClassifierModel is the model identifier used for keyword extraction.
	// Only used by the "llm" backend.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	ClassifierModel string

	// MaxKeywords caps the number of keywords returned per text.
	// Default: 15
	MaxKeywords int

	// NGramSize is the longest keyword phrase, in words.
	// Default: 3
	NGramSize int

	// MinConfidence is the lowest language detection confidence accepted.
	// Default: 0.7
	MinConfidence float64
}

type ConfigOption func(*Config)

func WithKeywordBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.KeywordBackend = backend
	}
}

func WithClassifierHost(host string) ConfigOption {
	return func(c *Config) {
		c.ClassifierHost = host
	}
}

func WithClassifierModel(model string) ConfigOption {
	return func(c *Config) {
		c.ClassifierModel = model
	}
}

func WithMaxKeywords(max int) ConfigOption {
	return func(c *Config) {
		c.MaxKeywords = max
	}
}

func WithNGramSize(n int) ConfigOption {
	return func(c *Config) {
		c.NGramSize = n
	}
}

func WithMinConfidence(min float64) ConfigOption {
	return func(c *Config) {
		c.MinConfidence = min
	}
}

func DefaultConfig() *Config {
	return &Config{
		KeywordBackend:  KeywordBackendLocal,
		ClassifierHost:  "http://localhost:11434/v1",
		ClassifierModel: "qwen2.5:3b",
		MaxKeywords:     15,
		NGramSize:       3,
		MinConfidence:   0.7,
	}
}

func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *Config) Normalize() {
	c.KeywordBackend = strings.ToLower(strings.TrimSpace(c.KeywordBackend))
	// Ensure ClassifierHost ends with /v1 for OpenAI-compatible APIs
	if c.ClassifierHost != "" && !strings.HasSuffix(c.ClassifierHost, "/v1") {
		// Remove trailing slash if present before adding /v1
		c.ClassifierHost = strings.TrimSuffix(c.ClassifierHost, "/")
		c.ClassifierHost = c.ClassifierHost + "/v1"
	}
}

func (c *Config) Validate() error {
	// Normalize first to ensure hosts are in correct format
	c.Normalize()

	switch c.KeywordBackend {
	case KeywordBackendLocal:
	case KeywordBackendLLM:
		if c.ClassifierHost == "" {
			return errors.New("ai config: ClassifierHost is required")
		}
		if c.ClassifierModel == "" {
			return errors.New("ai config: ClassifierModel is required")
		}
	default:
		return errors.New("ai config: KeywordBackend must be local or llm")
	}
	if c.MaxKeywords < 1 {
		return errors.New("ai config: MaxKeywords must be positive")
	}
	if c.NGramSize < 1 || c.NGramSize > 5 {
		return errors.New("ai config: NGramSize must be between 1 and 5")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("ai config: MinConfidence must be between 0 and 1")
	}
	return nil
}
