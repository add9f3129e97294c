package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("predict: %w", HTTPStatus(403, `{"error":"denied"}`))

	assert.True(t, errors.Is(err, ErrBackendHTTP))
	assert.False(t, errors.Is(err, ErrTransport))

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 403, gwErr.StatusCode)
	assert.Equal(t, `{"error":"denied"}`, gwErr.Details)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(KindTransportError, "predict request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Details)
	assert.Contains(t, err.Error(), "TransportError")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "classified", err: New(KindMissingPrompt, ""), want: KindMissingPrompt},
		{name: "wrapped", err: fmt.Errorf("outer: %w", ErrMissingCredential), want: KindMissingCredential},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
