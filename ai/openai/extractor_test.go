package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays canned completions in order.
type fakeModel struct {
	responses []string
	err       error
	calls     int
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	idx := min(m.calls-1, len(m.responses)-1)
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[idx]}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func newTestExtractor(model llms.Model, opts ...ai.ConfigOption) *KeywordExtractor {
	return newKeywordExtractorWithModel(model, ai.NewConfig(opts...))
}

func TestKeywordExtractor_Parses(t *testing.T) {
	model := &fakeModel{responses: []string{
		"```json\n{\"keywords\":[{\"keyword\":\"Cupertino\",\"relevance\":0.4},{\"keyword\":\"iphone\",\"relevance\":0.9},{\"keyword\":\"iphone\",\"relevance\":0.1}]}\n```",
	}}
	e := newTestExtractor(model)

	keywords, err := e.ExtractKeywords(context.Background(), "Apple unveiled the new iPhone in Cupertino")
	require.NoError(t, err)
	assert.Equal(t, []core.Keyword{
		{Term: "iphone", Score: 0.9},
		{Term: "cupertino", Score: 0.4},
	}, keywords)
	assert.Equal(t, 1, model.calls)
}

func TestKeywordExtractor_RetriesMalformed(t *testing.T) {
	model := &fakeModel{responses: []string{
		"not json at all",
		`{"keywords":[{"keyword":"vote","relevance":0.7},]}`,
	}}
	e := newTestExtractor(model)

	keywords, err := e.ExtractKeywords(context.Background(), "People vote today")
	require.NoError(t, err)
	assert.Equal(t, []core.Keyword{{Term: "vote", Score: 0.7}}, keywords)
	assert.Equal(t, 2, model.calls)
}

func TestKeywordExtractor_GivesUpAfterRetries(t *testing.T) {
	model := &fakeModel{responses: []string{"{{{"}}
	e := newTestExtractor(model)

	_, err := e.ExtractKeywords(context.Background(), "some text")
	assert.ErrorIs(t, err, ai.ErrKeywordExtraction)
	assert.Equal(t, 3, model.calls)
}

func TestKeywordExtractor_ModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	e := newTestExtractor(model)

	_, err := e.ExtractKeywords(context.Background(), "some text")
	assert.ErrorIs(t, err, ai.ErrKeywordExtraction)
	assert.Equal(t, 1, model.calls)
}

func TestKeywordExtractor_Limits(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"keywords":[{"keyword":"a b c d","relevance":1},{"keyword":"one","relevance":0.5},{"keyword":"two","relevance":0.4},{"keyword":"three","relevance":0.3}]}`,
	}}
	e := newTestExtractor(model, ai.WithMaxKeywords(2), ai.WithNGramSize(3))

	keywords, err := e.ExtractKeywords(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []core.Keyword{{Term: "one", Score: 0.5}, {Term: "two", Score: 0.4}}, keywords)
}

func TestKeywordExtractor_EmptyInput(t *testing.T) {
	model := &fakeModel{}
	e := newTestExtractor(model)

	keywords, err := e.ExtractKeywords(context.Background(), " \n ")
	require.NoError(t, err)
	assert.Empty(t, keywords)
	assert.Equal(t, 0, model.calls)
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"keywords":[]}`, `{"keywords":[]}`},
		{"fenced", "```json\n{\"keywords\":[]}\n```", `{"keywords":[]}`},
		{"preamble", `Sure! {"keywords":[]} Hope that helps`, `{"keywords":[]}`},
		{"trailing comma", `{"keywords":[1,2,]}`, `{"keywords":[1,2]}`},
		{"missing quote", `{"keywords":[{keyword":"x"}]}`, `{"keywords":[{"keyword":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanResponse(tt.input))
		})
	}
}

func TestScrubString(t *testing.T) {
	assert.Equal(t, "hello world", scrubString("  hello\t\n world\x00 "))
}
