package ai

import "errors"

var (
	// ErrKeywordExtraction indicates the keyword extractor failed.
	ErrKeywordExtraction = errors.New("keyword extraction failed")

	// ErrLanguageUndetermined indicates no language reached the minimum confidence.
	ErrLanguageUndetermined = errors.New("language undetermined")

	// ErrServiceRequired indicates a provider was built without a service.
	ErrServiceRequired = errors.New("ai service required")
)
