// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.LanguageDetector,
// ai.KeywordExtractor and ai.AIProvider for use in unit tests. The mocks are
// safe for concurrent use, so they can serve several ingestion lanes at once.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	detection, err := mockProvider.LanguageDetector().DetectLanguage(ctx, "test")
//
//	// Custom behavior injection
//	detector := mock.NewMockLanguageDetector().
//	    WithDetectFunc(func(ctx context.Context, text string) (ai.Detection, error) {
//	        return ai.Detection{Language: "de", Confidence: 0.9}, nil
//	    })
//
//	// Check call counts
//	count := detector.CallCount()
//
// # Default Behavior
//
//   - MockLanguageDetector: Reports "en" with confidence 1 for any non-blank text
//   - MockKeywordExtractor: Returns the first five distinct words longer than three letters
//   - MockProvider: Aggregates mock detector and extractor
package mock
