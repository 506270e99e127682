// Package lingua implements ai.LanguageDetector with the offline lingua-go
// models.
package lingua

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/pemistahl/lingua-go"
	"github.com/poiesic/newswire/ai"
)

// shortTextLength is the length below which input is repeated to give the
// n-gram models more signal.
const shortTextLength = 20

var urlPattern = regexp.MustCompile(`http\S+`)

// Languages are the languages the news provider publishes in.
var Languages = []lingua.Language{
	lingua.Arabic, lingua.Chinese, lingua.Dutch, lingua.English, lingua.French,
	lingua.German, lingua.Hebrew, lingua.Italian, lingua.Bokmal, lingua.Portuguese,
	lingua.Russian, lingua.Spanish, lingua.Swedish, lingua.Urdu,
}

// Detector implements ai.LanguageDetector. The underlying models are loaded
// once and shared read-only, so a Detector is safe for concurrent use.
type Detector struct {
	detector      lingua.LanguageDetector
	minConfidence float64
}

var _ ai.LanguageDetector = (*Detector)(nil)

// NewDetector creates a detector restricted to Languages.
func NewDetector(config *ai.Config) *Detector {
	if config == nil {
		config = ai.DefaultConfig()
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(Languages...).
		Build()

	return &Detector{
		detector:      detector,
		minConfidence: config.MinConfidence,
	}
}

// DetectLanguage detects the language of text after cleaning it.
func (d *Detector) DetectLanguage(ctx context.Context, text string) (ai.Detection, error) {
	if err := ctx.Err(); err != nil {
		return ai.Detection{}, err
	}

	cleaned := cleanText(text)
	if cleaned == "" {
		return ai.Detection{}, ai.ErrLanguageUndetermined
	}
	if len([]rune(cleaned)) < shortTextLength {
		cleaned = strings.Repeat(cleaned+" ", 3)
	}

	language, exists := d.detector.DetectLanguageOf(cleaned)
	if !exists {
		return ai.Detection{}, ai.ErrLanguageUndetermined
	}

	detection := ai.Detection{
		Language:   isoCode(language),
		Confidence: d.detector.ComputeLanguageConfidence(cleaned, language),
	}
	if detection.Confidence < d.minConfidence {
		return detection, ai.ErrLanguageUndetermined
	}
	return detection, nil
}

// cleanText lowercases text and strips URLs, punctuation and symbols.
func cleanText(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return r
		}
		return -1
	}, text)
	return strings.TrimSpace(text)
}

// isoCode maps a lingua language to the code used by the news provider.
func isoCode(language lingua.Language) string {
	switch language {
	case lingua.Arabic:
		return "ar"
	case lingua.Chinese:
		return "zh"
	case lingua.Dutch:
		return "nl"
	case lingua.English:
		return "en"
	case lingua.French:
		return "fr"
	case lingua.German:
		return "de"
	case lingua.Hebrew:
		return "he"
	case lingua.Italian:
		return "it"
	case lingua.Bokmal:
		return "no"
	case lingua.Portuguese:
		return "pt"
	case lingua.Russian:
		return "ru"
	case lingua.Spanish:
		return "es"
	case lingua.Swedish:
		return "sv"
	case lingua.Urdu:
		return "ud"
	default:
		return strings.ToLower(language.IsoCode639_1().String())
	}
}
