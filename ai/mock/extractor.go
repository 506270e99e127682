package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/newswire/core"
)

// MockKeywordExtractor is a test double for ai.KeywordExtractor.
// It allows custom behavior injection via function fields.
type MockKeywordExtractor struct {
	// ExtractKeywordsFunc is called by ExtractKeywords if set.
	// If nil, uses default simple word extraction.
	ExtractKeywordsFunc func(ctx context.Context, text string) ([]core.Keyword, error)

	mu        sync.Mutex
	callCount int
}

// NewMockKeywordExtractor creates a mock keyword extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockKeywordExtractor() *MockKeywordExtractor {
	return &MockKeywordExtractor{}
}

// WithExtractKeywordsFunc sets a custom function for ExtractKeywords.
// Returns the mock for method chaining.
func (m *MockKeywordExtractor) WithExtractKeywordsFunc(fn func(ctx context.Context, text string) ([]core.Keyword, error)) *MockKeywordExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractKeywordsFunc = fn
	return m
}

// ExtractKeywords extracts simple mock keywords from text.
// Default behavior: the first five distinct words longer than three letters,
// scored 1, 2, 3... in order of appearance.
func (m *MockKeywordExtractor) ExtractKeywords(ctx context.Context, text string) ([]core.Keyword, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractKeywordsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	keywords := make([]core.Keyword, 0, 5)
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(keywords) >= 5 { // Limit to 5 keywords
			break
		}
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, core.Keyword{Term: word, Score: float64(len(keywords) + 1)})
	}
	return keywords, nil
}

// CallCount returns the number of times ExtractKeywords was called.
func (m *MockKeywordExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockKeywordExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractKeywordsFunc = nil
}
