package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when a call expecting a result gets a 2xx
// answer without a body.
var ErrEmptyResponse = errors.New("empty response")

// HTTPError is returned when the backend answers with a non 2xx status.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// IsHTTPError reports whether err wraps an *HTTPError, and returns it.
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsNotFound reports a 404 answer.
func IsNotFound(err error) bool {
	httpErr, ok := IsHTTPError(err)
	return ok && httpErr.StatusCode == http.StatusNotFound
}

// IsForbidden reports a 401 or 403 answer.
func IsForbidden(err error) bool {
	httpErr, ok := IsHTTPError(err)
	return ok && (httpErr.StatusCode == http.StatusForbidden || httpErr.StatusCode == http.StatusUnauthorized)
}
