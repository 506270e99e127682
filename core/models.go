package core

import (
	"encoding/binary"
	"log/slog"
	"sort"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from the entity's natural key so the same article or source
// always maps to the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Keyword is a single extracted term and its relevance score.
type Keyword struct {
	Term  string
	Score float64
}

// Article is the canonical, storable form of a news article.
// URL is the natural key.
type Article struct {
	Id          ID
	Title       string
	Content     string
	Description string
	URL         string
	Category    string
	Source      string
	Author      string
	ImageURL    string
	PublishedAt time.Time
	FetchedAt   time.Time // Set by storage on insert
	Keywords    []Keyword // Populated by the enricher
	Language    string    // Populated by the enricher
	IsFeatured  bool
	IsArchived  bool
}

// Source is the canonical, storable form of a news source.
// Name is the natural key.
type Source struct {
	Id        ID
	Name      string
	URL       string
	Category  string
	Language  string
	Country   string
	UpdatedAt time.Time
}

// ArticleID returns the deterministic ID for an article URL.
func ArticleID(url string) ID {
	return IDFromContent("article:" + url)
}

// SourceID returns the deterministic ID for a source name.
func SourceID(name string) ID {
	return IDFromContent("source:" + name)
}

// RawArticle is an article as returned by the provider. Empty strings mean
// the provider omitted the field.
type RawArticle struct {
	Title       string
	URL         string
	Description string
	Content     string
	SourceName  string
	Author      string
	ImageURL    string
	PublishedAt string
}

// RawSource is a source as returned by the provider.
type RawSource struct {
	ID          string
	Name        string
	Description string
	URL         string
	Category    string
	Language    string
	Country     string
}

// SkipReason classifies why a record was not stored.
type SkipReason string

const (
	SkipMissingField   SkipReason = "missing_field"
	SkipMissingContent SkipReason = "missing_content"
	SkipInvalidURL     SkipReason = "invalid_url"
	SkipNoKeywords     SkipReason = "no_keywords"
	SkipKeywordError   SkipReason = "keyword_error"
	SkipBatchDuplicate SkipReason = "batch_duplicate"
	SkipAlreadyStored  SkipReason = "already_stored"
	SkipUnchanged      SkipReason = "unchanged"
	SkipConflict       SkipReason = "insert_conflict"
	SkipShutdown       SkipReason = "shutdown"
)

// Skip records a single dropped record.
type Skip struct {
	Key    string // Natural key, if known
	Reason SkipReason
	Detail string
}

// FetchCycleResult summarizes one fetch cycle for reporting.
type FetchCycleResult struct {
	Retrieved int
	Stored    int
	Updated   int
	Skipped   []Skip
}

// Skip appends a skip entry.
func (r *FetchCycleResult) Skip(key string, reason SkipReason, detail string) {
	r.Skipped = append(r.Skipped, Skip{Key: key, Reason: reason, Detail: detail})
}

// SkippedCount returns the number of skipped records.
func (r *FetchCycleResult) SkippedCount() int {
	return len(r.Skipped)
}

// SkipCounts returns the number of skips per reason.
func (r *FetchCycleResult) SkipCounts() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, s := range r.Skipped {
		counts[s.Reason]++
	}
	return counts
}

// Merge adds the counts of other into r.
func (r *FetchCycleResult) Merge(other *FetchCycleResult) {
	if other == nil {
		return
	}
	r.Retrieved += other.Retrieved
	r.Stored += other.Stored
	r.Updated += other.Updated
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// LogValue implements slog.LogValuer.
func (r *FetchCycleResult) LogValue() slog.Value {
	if r == nil {
		return slog.GroupValue()
	}
	attrs := []slog.Attr{
		slog.Int("retrieved", r.Retrieved),
		slog.Int("stored", r.Stored),
		slog.Int("updated", r.Updated),
		slog.Int("skipped", len(r.Skipped)),
	}
	counts := r.SkipCounts()
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		attrs = append(attrs, slog.Int("skip_"+reason, counts[SkipReason(reason)]))
	}
	return slog.GroupValue(attrs...)
}

// Pipeline identifies which entity a lane ingests.
type Pipeline string

const (
	PipelineArticles Pipeline = "articles"
	PipelineSources  Pipeline = "sources"
)

// LaneConfig configures one ingestion lane. It is not modified after the
// worker starts.
type LaneConfig struct {
	Pipeline Pipeline
	Category string
	Interval time.Duration
	Schedule string // Optional cron expression; overrides Interval
	PageSize int
	Country  string
	Language string
	Once     bool
}

// Name returns the lane's display name.
func (l LaneConfig) Name() string {
	if l.Category == "" {
		return string(l.Pipeline)
	}
	return string(l.Pipeline) + "/" + l.Category
}

// LaneCheckpoint is the persisted state of a lane after its latest cycle.
type LaneCheckpoint struct {
	Lane                string
	RunID               string
	LastAttempt         time.Time
	LastSuccess         time.Time
	ConsecutiveFailures int
	Retrieved           int
	Stored              int
	Updated             int
	Skipped             int
	UpdatedAt           time.Time
}
