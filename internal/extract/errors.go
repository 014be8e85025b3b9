package extract

import (
	"fmt"
	"unicode/utf8"
)

// ConfigError means the credential for the extraction endpoint is missing.
// No upstream request is made.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Key)
}

// UpstreamError carries a non-success response from the extraction endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, truncate(e.Body, 200))
}

// ResponseFormatError means the endpoint answered but no usable JSON could
// be taken from the answer. Raw holds the text exactly as returned.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("response format: %v (raw: %s)", e.Err, truncate(e.Raw, 200))
}

func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
