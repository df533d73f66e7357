package trino

import (
	"errors"
	"fmt"
)

// QueryError is a failure reported by the Trino engine for a statement.
// Message is Trino's message verbatim.
type QueryError struct {
	QueryID   string `json:"queryId,omitempty"`
	Message   string `json:"message"`
	ErrorCode int    `json:"errorCode"`
	ErrorName string `json:"errorName"`
	ErrorType string `json:"errorType"`
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return e.Message
}

// IsQueryError reports whether err is or wraps a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// HTTPError is an unexpected HTTP status from the coordinator.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("trino: %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("trino: %s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// retryable reports whether the protocol allows retrying the request.
func (e *HTTPError) retryable() bool {
	switch e.StatusCode {
	case 502, 503, 504:
		return true
	}
	return false
}
