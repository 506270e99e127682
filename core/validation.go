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

package core

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// urlPattern accepts http(s) URLs whose host is a domain name, localhost or a
// dotted quad, with an optional port and path.
var urlPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/.*)?$`)

// ValidateURL checks that raw is a well-formed http(s) URL that does not point
// at localhost, loopback (127.0.0.0/8) or a private range (10.0.0.0/8,
// 172.16.0.0/12, 192.168.0.0/16).
func ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %w", ErrInvalidURL, ErrEmptyNaturalKey)
	}
	if len(raw) > MaxURLLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidURL, MaxURLLength)
	}
	if !urlPattern.MatchString(raw) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if host == "localhost" {
		return fmt.Errorf("%w: %s", ErrUnsafeHost, host)
	}

	octets, ok := parseDottedQuad(host)
	if !ok {
		return nil
	}
	if octets == nil {
		return fmt.Errorf("%w: octet out of range in %s", ErrInvalidURL, host)
	}
	if isPrivateOrLoopback(octets) {
		return fmt.Errorf("%w: %s", ErrUnsafeHost, host)
	}
	return nil
}

// IsSafeURL reports whether ValidateURL accepts raw.
func IsSafeURL(raw string) bool {
	return ValidateURL(raw) == nil
}

// parseDottedQuad reports whether host is made only of digits and dots. When it
// is, the octets are returned, or nil if the host is not four values in 0..255.
func parseDottedQuad(host string) ([]int, bool) {
	if strings.Trim(host, "0123456789.") != "" || strings.Trim(host, ".") == "" {
		return nil, false
	}
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return nil, true
	}
	octets := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return nil, true
		}
		octets[i] = n
	}
	return octets, true
}

func isPrivateOrLoopback(o []int) bool {
	switch {
	case o[0] == 10:
		return true
	case o[0] == 172 && o[1] >= 16 && o[1] <= 31:
		return true
	case o[0] == 192 && o[1] == 168:
		return true
	case o[0] == 127:
		return true
	}
	return false
}

// ValidateArticle validates an Article before it is persisted.
//
// Validation rules:
//   - URL must be non-empty and pass ValidateURL
//   - Title, Description, Source and Content must not be empty
//   - Title must not exceed MaxTitleLength runes
//   - PublishedAt must be set
//
// NOT validated (populated by the enricher):
//   - Keywords
//   - Language
func ValidateArticle(article *Article) error {
	if article == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidArticle)
	}
	if err := ValidateURL(article.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArticle, err)
	}
	switch {
	case article.Title == "":
		return fmt.Errorf("%w: title is empty", ErrInvalidArticle)
	case article.Description == "":
		return fmt.Errorf("%w: description is empty", ErrInvalidArticle)
	case article.Source == "":
		return fmt.Errorf("%w: source is empty", ErrInvalidArticle)
	case article.Content == "":
		return fmt.Errorf("%w: content is empty", ErrInvalidArticle)
	case article.PublishedAt.IsZero():
		return fmt.Errorf("%w: published date is not set", ErrInvalidArticle)
	}
	if utf8.RuneCountInString(article.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalidArticle, MaxTitleLength)
	}
	return nil
}

// ValidateSource validates a Source before it is persisted.
func ValidateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("%w: source is nil", ErrInvalidSource)
	}
	if source.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrEmptyNaturalKey)
	}
	if err := ValidateURL(source.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	return nil
}

// ValidateLaneConfig checks a lane against the provider's supported values.
func ValidateLaneConfig(lane LaneConfig) error {
	if lane.Pipeline != PipelineArticles && lane.Pipeline != PipelineSources {
		return fmt.Errorf("%w: unknown pipeline %q", ErrInvalidLane, lane.Pipeline)
	}
	if lane.Category != "" && !IsValidCategory(lane.Category) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidLane, ErrInvalidCategory, lane.Category)
	}
	if lane.Country != "" && !ValidCountries[lane.Country] {
		return fmt.Errorf("%w: %w: %s", ErrInvalidLane, ErrInvalidCountry, lane.Country)
	}
	if lane.Language != "" && !ValidLanguages[lane.Language] {
		return fmt.Errorf("%w: %w: %s", ErrInvalidLane, ErrInvalidLanguage, lane.Language)
	}
	if lane.Pipeline == PipelineArticles && (lane.PageSize < 1 || lane.PageSize > MaxPageSize) {
		return fmt.Errorf("%w: page size must be between 1 and %d", ErrInvalidLane, MaxPageSize)
	}
	if !lane.Once && lane.Schedule == "" && lane.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidLane)
	}
	return nil
}
