package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/newswire/ai"
)

// MockLanguageDetector is a test double for ai.LanguageDetector.
type MockLanguageDetector struct {
	detectFunc func(ctx context.Context, text string) (ai.Detection, error)

	mu        sync.Mutex
	callCount int
	inputs    []string
}

// NewMockLanguageDetector creates a mock detector that reports every text as
// English with full confidence.
func NewMockLanguageDetector() *MockLanguageDetector {
	return &MockLanguageDetector{}
}

// WithDetectFunc sets a custom function for DetectLanguage.
// Returns the mock for method chaining.
func (m *MockLanguageDetector) WithDetectFunc(fn func(ctx context.Context, text string) (ai.Detection, error)) *MockLanguageDetector {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detectFunc = fn
	return m
}

// DetectLanguage records text and returns the configured detection.
func (m *MockLanguageDetector) DetectLanguage(ctx context.Context, text string) (ai.Detection, error) {
	m.mu.Lock()
	m.callCount++
	m.inputs = append(m.inputs, text)
	fn := m.detectFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if strings.TrimSpace(text) == "" {
		return ai.Detection{}, ai.ErrLanguageUndetermined
	}
	return ai.Detection{Language: "en", Confidence: 1}, nil
}

// CallCount returns the number of times DetectLanguage was called.
func (m *MockLanguageDetector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Inputs returns a copy of every text passed to DetectLanguage.
func (m *MockLanguageDetector) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}

// Reset clears the recorded calls and custom functions.
func (m *MockLanguageDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.inputs = nil
	m.detectFunc = nil
}
