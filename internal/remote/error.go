package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Error is a failed remote operation. Status carries the HTTP status code of
// the response; RetryAfter is set when the backend provided one on a rate
// limit response.
type Error struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s", http.StatusText(e.Status))
	}

	return fmt.Sprintf("remote: %s", e.Message)
}

// IsRateLimited reports whether err is a rate limit signal: an HTTP 429
// response or an error message indicating too many requests.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rErr *Error
	if errors.As(err, &rErr) && rErr.Status == http.StatusTooManyRequests {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "too many requests")
}

// RetryAfter returns the backend-provided retry delay of a rate limit error,
// or zero when none was provided.
func RetryAfter(err error) time.Duration {
	var rErr *Error
	if errors.As(err, &rErr) {
		return rErr.RetryAfter
	}

	return 0
}

// IsNotFound reports whether err is the remote backend reporting a missing
// resource.
func IsNotFound(err error) bool {
	var rErr *Error
	return errors.As(err, &rErr) && rErr.Status == http.StatusNotFound
}
