package lingua

import (
	"context"
	"testing"

	"github.com/poiesic/newswire/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Breaking NEWS", "breaking news"},
		{"strips urls", "read https://example.com/a?b=c now", "read  now"},
		{"strips punctuation", "Hello, world! (really)", "hello world really"},
		{"keeps other scripts", "Привет, мир", "привет мир"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanText(tt.input))
		})
	}
}

func TestDetector_DetectLanguage(t *testing.T) {
	detector := NewDetector(ai.DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"The government announced new economic measures to support small businesses across the country", "en"},
		{"Die Regierung hat neue wirtschaftliche Maßnahmen zur Unterstützung kleiner Unternehmen angekündigt", "de"},
		{"El gobierno anunció nuevas medidas económicas para apoyar a las pequeñas empresas del país", "es"},
		{"Le gouvernement a annoncé de nouvelles mesures économiques pour soutenir les petites entreprises", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			detection, err := detector.DetectLanguage(ctx, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, detection.Language)
			assert.GreaterOrEqual(t, detection.Confidence, 0.7)
		})
	}
}

func TestDetector_Undetermined(t *testing.T) {
	detector := NewDetector(ai.DefaultConfig())

	_, err := detector.DetectLanguage(context.Background(), "!!! ... ???")
	assert.ErrorIs(t, err, ai.ErrLanguageUndetermined)
}

func TestDetector_CancelledContext(t *testing.T) {
	detector := NewDetector(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := detector.DetectLanguage(ctx, "The government announced new measures")
	assert.ErrorIs(t, err, context.Canceled)
}
