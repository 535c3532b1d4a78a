package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const maxQueryLength = 500

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ValidateQuery checks a search query and returns it trimmed.
func ValidateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", invalid("error: search query is required")
	}
	if !utf8.ValidString(query) {
		return "", invalid("error: search query must be valid UTF-8")
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		return "", invalid("error: search query must be at most %d characters", maxQueryLength)
	}
	return query, nil
}

// ValidateContinuation requires the continuation token and click tracking
// params to be given together or not at all.
func ValidateContinuation(token, clickTrackingParams string) error {
	if (token == "") != (clickTrackingParams == "") {
		return invalid("error: continuation token and click tracking params must be given together")
	}
	return nil
}

func ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return invalid("error: URL is required")
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return invalid("error: invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return invalid("error: URL must start with http or https")
	}

	if parsedURL.Host == "" {
		return invalid("error: URL must have a host")
	}

	return nil
}
