package ingestion

import (
	"iter"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/newswire/core"
)

const (
	// contentFallbackLength is how much of the description stands in for
	// missing content.
	contentFallbackLength = 200
	ellipsis              = "..."
)

// truncationMarker matches the "[+1234 chars]" suffix the provider appends
// to shortened content, together with the whitespace before it.
var truncationMarker = regexp.MustCompile(`\s+\[\+\d+\s+chars\]`)

// publishedLayouts are tried in order. Layouts without a zone are read as UTC.
var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalizer converts provider records into canonical records.
// It is stateless and safe for concurrent use.
type Normalizer struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger means slog.Default().
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "normalizer"),
	}
}

// Articles lazily normalizes raw headlines for a lane category. Each raw
// record yields exactly once, in order: either an article with a nil skip
// or a nil article with the reason it was dropped.
func (n *Normalizer) Articles(raw []core.RawArticle, category string) iter.Seq2[*core.Article, *core.Skip] {
	if category == "" {
		category = core.DefaultCategory
	}
	return func(yield func(*core.Article, *core.Skip) bool) {
		for _, r := range raw {
			if !yield(n.article(r, category)) {
				return
			}
		}
	}
}

// Sources lazily normalizes raw sources with the same contract as Articles.
func (n *Normalizer) Sources(raw []core.RawSource) iter.Seq2[*core.Source, *core.Skip] {
	return func(yield func(*core.Source, *core.Skip) bool) {
		for _, r := range raw {
			if !yield(n.source(r)) {
				return
			}
		}
	}
}

func (n *Normalizer) article(raw core.RawArticle, category string) (*core.Article, *core.Skip) {
	title := strings.TrimSpace(raw.Title)
	url := strings.TrimSpace(raw.URL)
	description := strings.TrimSpace(raw.Description)
	source := strings.TrimSpace(raw.SourceName)
	published := strings.TrimSpace(raw.PublishedAt)

	key := url
	if key == "" {
		key = title
	}
	for _, f := range []struct{ name, value string }{
		{"title", title},
		{"url", url},
		{"description", description},
		{"source", source},
		{"publishedAt", published},
	} {
		if f.value == "" {
			return nil, &core.Skip{Key: key, Reason: core.SkipMissingField, Detail: f.name}
		}
	}

	content := CleanContent(raw.Content)
	if content == "" {
		content = contentFallback(description)
	}
	if content == "" {
		return nil, &core.Skip{Key: url, Reason: core.SkipMissingContent}
	}

	if err := core.ValidateURL(url); err != nil {
		return nil, &core.Skip{Key: url, Reason: core.SkipInvalidURL, Detail: err.Error()}
	}

	publishedAt, ok := ParsePublished(published)
	if !ok {
		publishedAt = n.now()
		n.logger.Warn("unparseable published date, using current time", "url", url, "publishedAt", published)
	}

	author := strings.TrimSpace(raw.Author)
	if author == "" {
		author = source
	}

	article := &core.Article{
		Id:          core.ArticleID(url),
		Title:       truncateRunes(title, core.MaxTitleLength),
		Content:     content,
		Description: description,
		URL:         url,
		Category:    category,
		Source:      source,
		Author:      author,
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		PublishedAt: publishedAt,
		Keywords:    []core.Keyword{},
	}
	if err := core.ValidateArticle(article); err != nil {
		return nil, &core.Skip{Key: url, Reason: core.SkipMissingField, Detail: err.Error()}
	}
	return article, nil
}

func (n *Normalizer) source(raw core.RawSource) (*core.Source, *core.Skip) {
	name := strings.TrimSpace(raw.Name)
	url := strings.TrimSpace(raw.URL)
	if name == "" {
		return nil, &core.Skip{Key: raw.ID, Reason: core.SkipMissingField, Detail: "name"}
	}
	if url == "" {
		return nil, &core.Skip{Key: name, Reason: core.SkipMissingField, Detail: "url"}
	}
	if err := core.ValidateURL(url); err != nil {
		return nil, &core.Skip{Key: name, Reason: core.SkipInvalidURL, Detail: err.Error()}
	}
	return &core.Source{
		Id:       core.SourceID(name),
		Name:     name,
		URL:      url,
		Category: strings.TrimSpace(raw.Category),
		Language: strings.TrimSpace(raw.Language),
		Country:  strings.TrimSpace(raw.Country),
	}, nil
}

// CleanContent trims content and removes provider truncation markers.
func CleanContent(content string) string {
	return strings.TrimSpace(truncationMarker.ReplaceAllString(content, ""))
}

// contentFallback derives content from the first runes of the description.
func contentFallback(description string) string {
	if description == "" {
		return ""
	}
	prefix := strings.TrimRightFunc(truncateRunes(description, contentFallbackLength), unicode.IsSpace)
	return prefix + ellipsis
}

// ParsePublished parses an ISO-8601 timestamp. Timestamps without a zone are UTC.
func ParsePublished(value string) (time.Time, bool) {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
