package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL_EdgeCases(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://m.youtube.com/results", false},
		{"http://127.0.0.1:8080/results", false},
		{"https://example.com/path#fragment", false},
		{"http://", true},
		{"", true},
		{"m.youtube.com/results", true},
		{"ftp://example.com", true},
	}

	for _, tt := range tests {
		err := ValidateURL(tt.url)
		assert.Equal(t, tt.wantErr, err != nil, "ValidateURL(%q) error = %v", tt.url, err)
	}
}

func TestValidateQuery(t *testing.T) {
	q, err := ValidateQuery("  golang generics ")
	assert.NoError(t, err)
	assert.Equal(t, "golang generics", q)

	for _, bad := range []string{"", "   ", "\xff\xfe", strings.Repeat("a", maxQueryLength+1)} {
		_, err := ValidateQuery(bad)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "query %q", bad)
	}
}

func TestValidateContinuation(t *testing.T) {
	assert.NoError(t, ValidateContinuation("", ""))
	assert.NoError(t, ValidateContinuation("tok", "ctp"))
	assert.Error(t, ValidateContinuation("tok", ""))
	assert.Error(t, ValidateContinuation("", "ctp"))
}
