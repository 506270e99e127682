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

// Package ai provides abstractions for the enrichment services used in newswire.
//
// This package defines interfaces for language detection and keyword
// extraction. The ingestion pipeline depends on these abstractions rather than
// on concrete models.
//
//   - LanguageDetector: Identifies the language of a text
//   - KeywordExtractor: Extracts ranked keywords from a text
//   - AIProvider: Aggregates both services for convenient initialization
//
// # Implementation Packages
//
//   - ai/lingua: Offline language detection with lingua-go
//   - ai/keywords: Local statistical keyword extraction
//   - ai/openai: Keyword extraction through OpenAI-compatible chat APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	detector := lingua.NewDetector(config)
//	extractor, err := keywords.NewExtractor(config)
//	provider, err := ai.NewProvider(detector, extractor)
//
//	// Or with an LLM keyword backend
//	config = ai.NewConfig(ai.WithKeywordBackend(ai.KeywordBackendLLM))
//	provider, err := openai.NewProvider(config)
//	defer provider.Close()
//
//	detection, err := provider.LanguageDetector().DetectLanguage(ctx, "Hello world")
//	keywords, err := provider.KeywordExtractor().ExtractKeywords(ctx, text)
package ai
