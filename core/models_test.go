package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestArticleAndSourceIDs(t *testing.T) {
	if ArticleID("https://example.com/a") != ArticleID("https://example.com/a") {
		t.Errorf("ArticleID() is not deterministic")
	}
	if ArticleID("BBC News") == SourceID("BBC News") {
		t.Errorf("article and source IDs share a namespace")
	}
}

func TestFetchCycleResult(t *testing.T) {
	r := &FetchCycleResult{Retrieved: 5, Stored: 2}
	r.Skip("https://example.com/a", SkipNoKeywords, "")
	r.Skip("https://example.com/b", SkipNoKeywords, "")
	r.Skip("", SkipMissingField, "url")

	if r.SkippedCount() != 3 {
		t.Fatalf("SkippedCount() = %d, want 3", r.SkippedCount())
	}
	counts := r.SkipCounts()
	if counts[SkipNoKeywords] != 2 || counts[SkipMissingField] != 1 {
		t.Errorf("SkipCounts() = %v", counts)
	}

	other := &FetchCycleResult{Retrieved: 1, Updated: 1}
	other.Skip("x", SkipUnchanged, "")
	r.Merge(other)
	r.Merge(nil)
	if r.Retrieved != 6 || r.Stored != 2 || r.Updated != 1 || r.SkippedCount() != 4 {
		t.Errorf("Merge() = %+v", r)
	}
}

func TestFetchCycleResult_LogValue(t *testing.T) {
	r := &FetchCycleResult{Retrieved: 3, Stored: 1}
	r.Skip("a", SkipAlreadyStored, "")
	r.Skip("b", SkipInvalidURL, "")

	attrs := map[string]int64{}
	for _, a := range r.LogValue().Group() {
		attrs[a.Key] = a.Value.Int64()
	}
	want := map[string]int64{
		"retrieved":           3,
		"stored":              1,
		"updated":             0,
		"skipped":             2,
		"skip_already_stored": 1,
		"skip_invalid_url":    1,
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %s = %d, want %d", k, attrs[k], v)
		}
	}
}

func TestLaneConfig_Name(t *testing.T) {
	if got := (LaneConfig{Pipeline: PipelineArticles, Category: "sports"}).Name(); got != "articles/sports" {
		t.Errorf("Name() = %q", got)
	}
	if got := (LaneConfig{Pipeline: PipelineSources}).Name(); got != "sources" {
		t.Errorf("Name() = %q", got)
	}
}
