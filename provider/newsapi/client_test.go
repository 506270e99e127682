package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, provider.ErrAPIKeyRequired)
}

func TestNewClient_Options(t *testing.T) {
	_, err := NewClient("key", WithBaseURL(""))
	assert.Error(t, err)

	_, err = NewClient("key", WithHTTPClient(nil))
	assert.Error(t, err)

	c, err := NewClient("key", WithBaseURL("http://example.com/v2/"))
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/v2", c.baseURL)
}

func TestClient_Categories(t *testing.T) {
	c, err := NewClient("key")
	require.NoError(t, err)

	categories, ok := c.Categories()
	assert.True(t, ok)
	assert.Equal(t, core.Categories, categories)

	// The returned slice is a copy.
	categories[0] = "changed"
	assert.Equal(t, "business", core.Categories[0])
}

func TestClient_TopHeadlines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "us", r.URL.Query().Get("country"))
		assert.Equal(t, "sports", r.URL.Query().Get("category"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"totalResults": 2,
			"articles": [
				{
					"source": {"id": "espn", "name": "ESPN"},
					"author": null,
					"title": "Team wins final",
					"description": "A late goal decided it.",
					"url": "https://espn.example.com/final",
					"urlToImage": "https://espn.example.com/final.jpg",
					"publishedAt": "2024-03-01T12:00:00Z",
					"content": "A late goal decided it... [+1200 chars]"
				},
				{
					"source": {"id": null, "name": "Wire"},
					"title": "Second story",
					"url": "https://wire.example.com/2"
				}
			]
		}`))
	})

	articles, err := client.TopHeadlines(context.Background(), provider.HeadlinesRequest{
		Country:  "us",
		Category: "sports",
		PageSize: 50,
	})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, core.RawArticle{
		Title:       "Team wins final",
		URL:         "https://espn.example.com/final",
		Description: "A late goal decided it.",
		Content:     "A late goal decided it... [+1200 chars]",
		SourceName:  "ESPN",
		ImageURL:    "https://espn.example.com/final.jpg",
		PublishedAt: "2024-03-01T12:00:00Z",
	}, articles[0])
	assert.Equal(t, "Wire", articles[1].SourceName)
	assert.Empty(t, articles[1].Description)
}

func TestClient_TopHeadlinesOmitsEmptyParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"status":"ok","articles":[]}`))
	})

	articles, err := client.TopHeadlines(context.Background(), provider.HeadlinesRequest{})
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestClient_Sources(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines/sources", r.URL.Path)
		assert.Equal(t, "business", r.URL.Query().Get("category"))
		assert.False(t, r.URL.Query().Has("country"))

		_, _ = w.Write([]byte(`{
			"status": "ok",
			"sources": [
				{"id": "wire", "name": "Wire", "description": "Wire news", "url": "https://wire.example.com",
				 "category": "business", "language": "en", "country": "us"},
				{"id": "blank", "name": "Blank", "description": "", "url": "https://blank.example.com",
				 "category": "business", "language": "en", "country": "us"}
			]
		}`))
	})

	sources, err := client.Sources(context.Background(), provider.SourcesRequest{Category: "business"})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, core.RawSource{
		ID:          "wire",
		Name:        "Wire",
		Description: "Wire news",
		URL:         "https://wire.example.com",
		Category:    "business",
		Language:    "en",
		Country:     "us",
	}, sources[0])
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   provider.ErrorKind
		wantSent   error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "invalid key",
			status:     http.StatusUnauthorized,
			body:       `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`,
			wantKind:   provider.KindRejected,
			wantSent:   provider.ErrRejected,
			wantCode:   "apiKeyInvalid",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"status":"error","code":"rateLimited","message":"Too many requests."}`,
			wantKind:   provider.KindRejected,
			wantSent:   provider.ErrRejected,
			wantCode:   "rateLimited",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantKind:   provider.KindHTTP,
			wantSent:   provider.ErrHTTP,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "error in ok body",
			status:     http.StatusOK,
			body:       `{"status":"error","code":"parametersMissing","message":"Required parameters are missing."}`,
			wantKind:   provider.KindRejected,
			wantSent:   provider.ErrRejected,
			wantCode:   "parametersMissing",
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			status:     http.StatusOK,
			body:       `{"status":"ok","articles":[`,
			wantKind:   provider.KindHTTP,
			wantSent:   provider.ErrHTTP,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.TopHeadlines(context.Background(), provider.HeadlinesRequest{Country: "us"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantSent)

			var perr *provider.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantKind, perr.Kind)
			assert.Equal(t, tt.wantCode, perr.Code)
			assert.Equal(t, tt.wantStatus, perr.StatusCode)
			assert.Equal(t, "top-headlines", perr.Op)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := NewClient("key", WithBaseURL(baseURL))
	require.NoError(t, err)

	_, err = client.Sources(context.Background(), provider.SourcesRequest{})
	assert.ErrorIs(t, err, provider.ErrNetwork)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := NewClient("key",
		WithBaseURL(server.URL),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)

	_, err = client.TopHeadlines(context.Background(), provider.HeadlinesRequest{})
	assert.ErrorIs(t, err, provider.ErrTimeout)
}
