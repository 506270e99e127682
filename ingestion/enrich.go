package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
)

const (
	// DetectionTextLimit caps the text given to the language detector.
	DetectionTextLimit = 100

	// FallbackLanguage is used when detection fails or is not confident.
	FallbackLanguage = "en"
)

// Enrichment is the metadata derived for one article.
type Enrichment struct {
	Keywords []core.Keyword
	Language string
}

// Enricher derives keywords and a language for articles. Keywords are
// required for an article to be kept; the language falls back to a default.
type Enricher struct {
	detector  ai.LanguageDetector
	extractor ai.KeywordExtractor
	pool      *ants.Pool
	fallback  string
	minConf   float64
	logger    *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher) error

// WithEnrichPoolSize sets how many articles are enriched concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithEnrichPoolSize(size int) EnricherOption {
	return func(e *Enricher) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithFallbackLanguage sets the language used when detection has no answer.
func WithFallbackLanguage(code string) EnricherOption {
	return func(e *Enricher) error {
		code = strings.TrimSpace(code)
		if code == "" {
			return errors.New("fallback language must not be empty")
		}
		e.fallback = code
		return nil
	}
}

// WithMinConfidence sets the lowest detection confidence kept; below it the
// fallback language is used. Default is ai.DefaultConfig().MinConfidence.
func WithMinConfidence(min float64) EnricherOption {
	return func(e *Enricher) error {
		if min < 0 || min > 1 {
			return fmt.Errorf("min confidence must be between 0 and 1, got %v", min)
		}
		e.minConf = min
		return nil
	}
}

// WithEnricherLogger sets a custom logger.
// Default is slog.Default().
func WithEnricherLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "enricher")
		return nil
	}
}

// NewEnricher creates an Enricher over the provider's services.
// The services are shared read-only by every lane.
func NewEnricher(provider ai.AIProvider, opts ...EnricherOption) (*Enricher, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	detector := provider.LanguageDetector()
	extractor := provider.KeywordExtractor()
	if detector == nil || extractor == nil {
		return nil, ai.ErrServiceRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Enricher{
		detector:  detector,
		extractor: extractor,
		pool:      pool,
		fallback:  FallbackLanguage,
		minConf:   ai.DefaultConfig().MinConfidence,
		logger:    slog.Default().With("component", "enricher"),
	}
	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}
	return e, nil
}

// Enrich derives the metadata of a single article. A non-nil skip means the
// article must not be stored.
func (e *Enricher) Enrich(ctx context.Context, article *core.Article) (Enrichment, *core.Skip) {
	text := CombinedText(article)

	keywords, err := e.extractor.ExtractKeywords(ctx, text)
	if err != nil {
		e.logger.Warn("keyword extraction failed", "url", article.URL, "err", err)
		return Enrichment{}, &core.Skip{Key: article.URL, Reason: core.SkipKeywordError, Detail: err.Error()}
	}
	if len(keywords) == 0 {
		return Enrichment{}, &core.Skip{Key: article.URL, Reason: core.SkipNoKeywords}
	}

	return Enrichment{
		Keywords: keywords,
		Language: e.detectLanguage(ctx, article.URL, text),
	}, nil
}

func (e *Enricher) detectLanguage(ctx context.Context, url, text string) string {
	detection, err := e.detector.DetectLanguage(ctx, truncateRunes(text, DetectionTextLimit))
	if err != nil || detection.Language == "" || detection.Confidence < e.minConf {
		e.logger.Debug("language detection fell back",
			"url", url,
			"fallback", e.fallback,
			"confidence", detection.Confidence,
			"err", err)
		return e.fallback
	}
	return detection.Language
}

// EnrichAll enriches articles concurrently and returns the kept articles in
// input order together with the skips of the dropped ones.
func (e *Enricher) EnrichAll(ctx context.Context, articles []*core.Article) ([]*core.Article, []core.Skip) {
	enrichments := make([]Enrichment, len(articles))
	skips := make([]*core.Skip, len(articles))

	var wg sync.WaitGroup
	for i, article := range articles {
		task := func() {
			defer wg.Done()
			enrichments[i], skips[i] = e.Enrich(ctx, article)
		}
		wg.Add(1)
		if err := e.pool.Submit(task); err != nil {
			// Pool released or overloaded, run inline
			task()
		}
	}
	wg.Wait()

	kept := make([]*core.Article, 0, len(articles))
	var dropped []core.Skip
	for i, article := range articles {
		if skips[i] != nil {
			dropped = append(dropped, *skips[i])
			continue
		}
		article.Keywords = enrichments[i].Keywords
		article.Language = enrichments[i].Language
		kept = append(kept, article)
	}
	return kept, dropped
}

// Release releases the enrichment pool.
// The enricher should not be used after calling Release.
func (e *Enricher) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// CombinedText joins the article fields fed to enrichment.
func CombinedText(article *core.Article) string {
	return article.Title + " " + article.Description + " " + article.Content
}
