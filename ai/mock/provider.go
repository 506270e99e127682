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

package mock

import "github.com/poiesic/newswire/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock detector and extractor instances.
type MockProvider struct {
	detector  *MockLanguageDetector
	extractor *MockKeywordExtractor
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockDetector()/GetMockExtractor() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		detector:  NewMockLanguageDetector(),
		extractor: NewMockKeywordExtractor(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(detector *MockLanguageDetector, extractor *MockKeywordExtractor) ai.AIProvider {
	return &MockProvider{
		detector:  detector,
		extractor: extractor,
	}
}

// LanguageDetector returns the mock language detector.
func (p *MockProvider) LanguageDetector() ai.LanguageDetector {
	return p.detector
}

// KeywordExtractor returns the mock keyword extractor.
func (p *MockProvider) KeywordExtractor() ai.KeywordExtractor {
	return p.extractor
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockDetector returns the underlying mock detector for test assertions.
func (p *MockProvider) GetMockDetector() *MockLanguageDetector {
	return p.detector
}

// GetMockExtractor returns the underlying mock extractor for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockExtractor() *MockKeywordExtractor {
	return p.extractor
}
