package ai

// Provider is an AIProvider assembled from independent services.
type Provider struct {
	detector  LanguageDetector
	extractor KeywordExtractor
	closers   []func() error
}

// NewProvider combines a detector and an extractor. Optional closers run in
// order on Close.
func NewProvider(detector LanguageDetector, extractor KeywordExtractor, closers ...func() error) (*Provider, error) {
	if detector == nil || extractor == nil {
		return nil, ErrServiceRequired
	}
	return &Provider{
		detector:  detector,
		extractor: extractor,
		closers:   closers,
	}, nil
}

// LanguageDetector returns the language detection service.
func (p *Provider) LanguageDetector() LanguageDetector {
	return p.detector
}

// KeywordExtractor returns the keyword extraction service.
func (p *Provider) KeywordExtractor() KeywordExtractor {
	return p.extractor
}

// Close runs the closers and returns the first error.
func (p *Provider) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
