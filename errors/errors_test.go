package errors

import (
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := InvalidInput("test.Op", nil, "test message")
	assert.Equal(t, "test message", err.Error())

	cause := fmt.Errorf("cause error")
	err = FetchFailed("test.Op", cause, "test message")
	assert.Equal(t, "test message: cause error", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct match",
			err:      MissingData("op", nil, "missing"),
			kind:     KindMissingData,
			expected: true,
		},
		{
			name:     "other kind",
			err:      FetchFailed("op", nil, "fetch"),
			kind:     KindExtract,
			expected: false,
		},
		{
			name:     "wrapped by pkg/errors",
			err:      pkgerrors.Wrap(ExtractFailed("op", nil, "extract"), "page 2"),
			kind:     KindExtract,
			expected: true,
		},
		{
			name:     "nested app errors",
			err:      Internal("outer", Storage("inner", nil, "disk"), "wrapper"),
			kind:     KindStorage,
			expected: true,
		},
		{
			name:     "non-custom error",
			err:      fmt.Errorf("standard error"),
			kind:     KindInternal,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Is(tt.err, tt.kind))
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid input", InvalidInput("op", nil, "bad"), http.StatusBadRequest},
		{"fetch", FetchFailed("op", nil, "down"), http.StatusBadGateway},
		{"extract", ExtractFailed("op", nil, "no json"), http.StatusBadGateway},
		{"missing data", MissingData("op", nil, "no count"), http.StatusUnprocessableEntity},
		{"storage", Storage("op", nil, "locked"), http.StatusInternalServerError},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusCode(tt.err))
		})
	}
}
