package reputation

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRequestFailed wraps transport failures talking to the platform
	ErrRequestFailed = errors.New("reputation: request failed")
	// ErrAuthenticationFailed is returned when both refresh and re-authentication fail
	ErrAuthenticationFailed = errors.New("reputation: authentication failed")
)

// APIError is a non-2xx response from the platform
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("reputation: %s %s returned HTTP %d", e.Method, e.Path, e.StatusCode)
}

// HTTPStatusCode returns the response status code
func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

// ResponseBody returns the (size capped) response body
func (e *APIError) ResponseBody() string {
	return string(e.Body)
}

// IsUnauthorized reports whether err carries an HTTP 401 from the platform
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
