// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package newsapi is a client for the newsapi.org v2 REST API.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/provider"
)

const (
	// DefaultBaseURL is the newsapi.org v2 endpoint.
	DefaultBaseURL = "https://newsapi.org/v2"

	// DefaultTimeout bounds a single HTTP call.
	DefaultTimeout = 30 * time.Second

	apiKeyHeader = "X-Api-Key"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client implements provider.NewsProvider for newsapi.org.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ provider.NewsProvider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL overrides the API endpoint (useful for tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if baseURL == "" {
			return errors.New("newsapi: base url must not be empty")
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return errors.New("newsapi: http client must not be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, provider.ErrAPIKeyRequired
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default().With("component", "newsapi"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Categories returns the categories newsapi.org supports.
func (c *Client) Categories() ([]string, bool) {
	return slices.Clone(core.Categories), true
}

type apiSource struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

type apiArticle struct {
	Source      apiSource `json:"source"`
	Author      *string   `json:"author"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	URL         *string   `json:"url"`
	URLToImage  *string   `json:"urlToImage"`
	PublishedAt *string   `json:"publishedAt"`
	Content     *string   `json:"content"`
}

type headlinesResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

type apiSourceDetail struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Language    string `json:"language"`
	Country     string `json:"country"`
}

type sourcesResponse struct {
	Status  string            `json:"status"`
	Sources []apiSourceDetail `json:"sources"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TopHeadlines fetches /top-headlines.
func (c *Client) TopHeadlines(ctx context.Context, req provider.HeadlinesRequest) ([]core.RawArticle, error) {
	query := url.Values{}
	setIfPresent(query, "country", req.Country)
	setIfPresent(query, "category", req.Category)
	if req.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(req.PageSize))
	}

	var resp headlinesResponse
	if err := c.get(ctx, "top-headlines", "/top-headlines", query, &resp); err != nil {
		return nil, err
	}

	articles := make([]core.RawArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		articles = append(articles, core.RawArticle{
			Title:       deref(a.Title),
			URL:         deref(a.URL),
			Description: deref(a.Description),
			Content:     deref(a.Content),
			SourceName:  a.Source.Name,
			Author:      deref(a.Author),
			ImageURL:    deref(a.URLToImage),
			PublishedAt: deref(a.PublishedAt),
		})
	}
	c.logger.Debug("fetched headlines",
		"category", req.Category,
		"country", req.Country,
		"count", len(articles),
		"total", resp.TotalResults)
	return articles, nil
}

// Sources fetches /top-headlines/sources and drops entries with any empty field.
func (c *Client) Sources(ctx context.Context, req provider.SourcesRequest) ([]core.RawSource, error) {
	query := url.Values{}
	setIfPresent(query, "category", req.Category)
	setIfPresent(query, "language", req.Language)
	setIfPresent(query, "country", req.Country)

	var resp sourcesResponse
	if err := c.get(ctx, "sources", "/top-headlines/sources", query, &resp); err != nil {
		return nil, err
	}

	sources := make([]core.RawSource, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		src := core.RawSource{
			ID:          strings.TrimSpace(s.ID),
			Name:        strings.TrimSpace(s.Name),
			Description: strings.TrimSpace(s.Description),
			URL:         strings.TrimSpace(s.URL),
			Category:    strings.TrimSpace(s.Category),
			Language:    strings.TrimSpace(s.Language),
			Country:     strings.TrimSpace(s.Country),
		}
		if hasEmptyField(src) {
			continue
		}
		sources = append(sources, src)
	}
	c.logger.Debug("fetched sources",
		"category", req.Category,
		"count", len(sources),
		"filtered", len(resp.Sources)-len(sources))
	return sources, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &provider.ProviderError{Kind: provider.KindNetwork, Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.ProviderError{Kind: transportKind(err), Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(op, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.ProviderError{Kind: transportKind(err), Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	// newsapi reports some failures in the body of a 200 response.
	var status errorResponse
	if err := json.Unmarshal(body, &status); err == nil && status.Status == "error" {
		return &provider.ProviderError{
			Kind:       provider.KindRejected,
			Op:         op,
			StatusCode: resp.StatusCode,
			Code:       status.Code,
			Message:    status.Message,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &provider.ProviderError{
			Kind:       provider.KindHTTP,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	perr := &provider.ProviderError{Kind: provider.KindHTTP, Op: op, StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusUpgradeRequired, http.StatusTooManyRequests:
		perr.Kind = provider.KindRejected
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		perr.Code = apiErr.Code
		perr.Message = apiErr.Message
	}
	return perr
}

func transportKind(err error) provider.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return provider.KindTimeout
	}
	return provider.KindNetwork
}

func hasEmptyField(s core.RawSource) bool {
	return s.ID == "" || s.Name == "" || s.Description == "" || s.URL == "" ||
		s.Category == "" || s.Language == "" || s.Country == ""
}

func setIfPresent(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
