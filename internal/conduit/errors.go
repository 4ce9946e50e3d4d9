package conduit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPError is returned when Conduit answers with a non-success status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("conduit HTTP error (status %d): %s", e.StatusCode, e.Body)
}

// APIError is returned when a response carries a non-null error_code.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	if e.Info == "" {
		return "conduit error: " + e.Code
	}
	return fmt.Sprintf("conduit error: %s - %s", e.Code, e.Info)
}

// IsAuthError reports whether err means the API token was rejected.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "ERR-INVALID-AUTH", "ERR-INVALID-SESSION":
			return true
		}
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden
	}
	return false
}

func isRetryable(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode == http.StatusServiceUnavailable
}

// retryBaseDelay is the first backoff interval; it doubles per attempt.
var retryBaseDelay = time.Second

func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := retryBaseDelay << uint(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
