package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Is(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want error
	}{
		{KindNetwork, ErrNetwork},
		{KindTimeout, ErrTimeout},
		{KindHTTP, ErrHTTP},
		{KindRejected, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			var err error = &ProviderError{Kind: tt.kind, Op: "top-headlines"}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProviderError_UnwrapsCause(t *testing.T) {
	err := error(&ProviderError{Kind: KindTimeout, Op: "sources", Err: context.DeadlineExceeded})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, KindTimeout, perr.Kind)
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{
		Kind:       KindRejected,
		Op:         "top-headlines",
		StatusCode: 401,
		Code:       "apiKeyInvalid",
		Message:    "Your API key is invalid.",
	}
	assert.Equal(t, "top-headlines rejected (status 401): apiKeyInvalid: Your API key is invalid.", err.Error())
}
