package askapi

import (
	"errors"
	"fmt"
)

var (
	// ErrAugmentationUnavailable is returned instead of a request body when
	// codebase augmentation is on, the index found nothing and the index
	// backend is not available.
	ErrAugmentationUnavailable = errors.New("codebase augmentation unavailable")

	// ErrOperationFailed is returned when a session or account call answers
	// with a non-200 envelope code.
	ErrOperationFailed = errors.New("operation failed")
)

// TransportError reports a connection failure or a non-2xx HTTP status.
type TransportError struct {
	URL        string
	StatusCode int // zero when no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed: status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
