// Package provider defines the news provider contract consumed by ingestion.
package provider

import (
	"context"

	"github.com/poiesic/newswire/core"
)

// HeadlinesRequest selects a page of top headlines.
type HeadlinesRequest struct {
	Country  string
	Category string
	PageSize int
}

// SourcesRequest filters the provider's source list. Empty fields are not sent.
type SourcesRequest struct {
	Category string
	Language string
	Country  string
}

// HeadlineFetcher fetches top headlines.
type HeadlineFetcher interface {
	// TopHeadlines returns the current headlines for req.
	// Returns a *ProviderError on network or HTTP failure.
	TopHeadlines(ctx context.Context, req HeadlinesRequest) ([]core.RawArticle, error)
}

// SourceFetcher fetches news sources.
type SourceFetcher interface {
	// Sources returns the sources matching req. Sources with any empty field
	// are filtered out before returning.
	Sources(ctx context.Context, req SourcesRequest) ([]core.RawSource, error)
}

// CategoryLister is the optional category capability of a provider.
type CategoryLister interface {
	// Categories returns the categories the provider supports. ok is false
	// when the provider cannot enumerate categories.
	Categories() (categories []string, ok bool)
}

// NewsProvider is the full provider surface used by the ingestion lanes.
type NewsProvider interface {
	HeadlineFetcher
	SourceFetcher
	CategoryLister
}
