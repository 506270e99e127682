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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// parseAttempts is how many completions are requested before a malformed
// response is reported as a failure.
const parseAttempts = 3

// KeywordExtractor implements ai.KeywordExtractor using OpenAI-compatible chat APIs.
type KeywordExtractor struct {
	client      llms.Model
	maxKeywords int
	ngramSize   int
	logger      *slog.Logger
}

var _ ai.KeywordExtractor = (*KeywordExtractor)(nil)

// keyword is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type keyword struct {
	Keyword   string  `json:"keyword"`
	Relevance float64 `json:"relevance"`
}

// analysis is the wrapper structure for the LLM's JSON response.
type analysis struct {
	Keywords []keyword `json:"keywords"`
}

// newKeywordExtractor is an internal constructor that returns the concrete type.
// Used by NewProvider to manage the instance.
func newKeywordExtractor(config *ai.Config) (*KeywordExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}
	return newKeywordExtractorWithModel(client, config), nil
}

func newKeywordExtractorWithModel(client llms.Model, config *ai.Config) *KeywordExtractor {
	return &KeywordExtractor{
		client:      client,
		maxKeywords: config.MaxKeywords,
		ngramSize:   config.NGramSize,
		logger:      slog.Default().With("component", "openai-extractor"),
	}
}

// NewKeywordExtractor creates a new keyword extractor using the provided configuration.
//
// Returns ai.KeywordExtractor interface to enforce abstraction.
func NewKeywordExtractor(config *ai.Config) (ai.KeywordExtractor, error) {
	return newKeywordExtractor(config)
}

// ExtractKeywords asks the model for ranked keywords. Unlike the local
// extractor, higher scores are more relevant; results are ordered by
// descending relevance either way.
func (e *KeywordExtractor) ExtractKeywords(ctx context.Context, text string) ([]core.Keyword, error) {
	text = scrubString(text)
	if text == "" {
		return []core.Keyword{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt(e.maxKeywords, e.ngramSize)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	var result analysis
	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: %w", ai.ErrKeywordExtraction, err)
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []core.Keyword{}, nil
		}

		responseText := cleanResponse(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse classifier response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %w", ai.ErrKeywordExtraction, lastErr)
	}

	keywords := make([]core.Keyword, 0, len(result.Keywords))
	seen := make(map[string]bool, len(result.Keywords))
	for _, k := range result.Keywords {
		term := strings.ToLower(strings.TrimSpace(k.Keyword))
		if term == "" || seen[term] || len(strings.Fields(term)) > e.ngramSize {
			continue
		}
		seen[term] = true
		keywords = append(keywords, core.Keyword{Term: term, Score: k.Relevance})
	}

	sortByRelevance(keywords)
	if len(keywords) > e.maxKeywords {
		keywords = keywords[:e.maxKeywords]
	}

	e.logger.Debug("extracted keywords",
		"total", len(result.Keywords),
		"kept", len(keywords))
	return keywords, nil
}
