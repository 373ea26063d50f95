package search

import (
	"errors"
	"fmt"
)

// BackendError is a non-retryable error response from the search backend.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search backend error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("search backend error (status %d): %s", e.StatusCode, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a BackendError with the given status and message.
func NewBackendError(statusCode int, message string, err error) error {
	return &BackendError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ProtocolError means the backend broke the deep-pagination contract: a
// non-empty page without a usable cursor, or a scroll exceeding the page
// ceiling. Scrolling must stop rather than loop forever.
type ProtocolError struct {
	Index  string
	Page   int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pagination protocol error on index %s (page %d): %s", e.Index, e.Page, e.Reason)
}

// NewProtocolError creates a ProtocolError for the given index and page.
func NewProtocolError(index string, page int, reason string) error {
	return &ProtocolError{
		Index:  index,
		Page:   page,
		Reason: reason,
	}
}

// IsProtocolError checks if an error is, or wraps, a pagination protocol
// error.
func IsProtocolError(err error) bool {
	var protocolErr *ProtocolError
	return errors.As(err, &protocolErr)
}
