package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"auth", errors.New("error, status code: 401, message: invalid api key"), ErrorTypeAuth, false},
		{"model", errors.New("The model `gpt-9` does not exist"), ErrorTypeModel, false},
		{"endpoint", errors.New("status code: 404"), ErrorTypeEndpoint, false},
		{"refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{"rate", errors.New("status code: 429, rate limit reached"), ErrorTypeUnknown, true},
		{"server", errors.New("status code: 503"), ErrorTypeEndpoint, true},
		{"other", errors.New("boom"), ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.retryable, got.IsRetryable())
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeModel, "bad model", false, nil)
	assert.Same(t, orig, ClassifyError(orig))
	assert.Nil(t, ClassifyError(nil))
}
