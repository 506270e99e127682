package ai

import (
	"context"

	"github.com/poiesic/newswire/core"
)

// LanguageDetector identifies the natural language of a text.
// Implementations must be thread-safe for concurrent use.
type LanguageDetector interface {
	// DetectLanguage returns the most likely language of text as a lowercase
	// ISO 639-1 code. When no language reaches the detector's minimum
	// confidence it returns the best guess together with ErrLanguageUndetermined.
	DetectLanguage(ctx context.Context, text string) (Detection, error)
}

// KeywordExtractor extracts ranked keywords from text.
// Implementations must be thread-safe for concurrent use.
type KeywordExtractor interface {
	// ExtractKeywords returns keywords ordered from most to least relevant.
	// An empty slice means nothing usable was found.
	// Returns an error wrapping ErrKeywordExtraction if extraction fails.
	ExtractKeywords(ctx context.Context, text string) ([]core.Keyword, error)
}

// Detection is the result of a language detection.
type Detection struct {
	// Language is a lowercase ISO 639-1 code such as "en".
	Language string

	// Confidence is in the range [0, 1].
	Confidence float64
}

// AIProvider aggregates the enrichment services.
type AIProvider interface {
	// LanguageDetector returns the language detection service.
	// The returned LanguageDetector is safe for concurrent use.
	LanguageDetector() LanguageDetector

	// KeywordExtractor returns the keyword extraction service.
	// The returned KeywordExtractor is safe for concurrent use.
	KeywordExtractor() KeywordExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
