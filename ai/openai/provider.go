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

package openai

import (
	"log/slog"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/ai/lingua"
)

// Provider implements ai.AIProvider with an OpenAI-compatible keyword
// extractor and the offline lingua language detector.
type Provider struct {
	config    *ai.Config
	detector  *lingua.Detector
	extractor *KeywordExtractor
	logger    *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	extractor, err := newKeywordExtractor(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		detector:  lingua.NewDetector(config),
		extractor: extractor,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// LanguageDetector returns the language detection service.
func (p *Provider) LanguageDetector() ai.LanguageDetector {
	return p.detector
}

// KeywordExtractor returns the keyword extraction service.
func (p *Provider) KeywordExtractor() ai.KeywordExtractor {
	return p.extractor
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider", "model", p.config.ClassifierModel)
	return nil
}
