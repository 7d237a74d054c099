package salesclient

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: network errors, timeouts, and
// 5xx responses. The entry stays queued and the sync engine backs off.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient central error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ConflictError marks a definitive rejection by central. Retrying the same
// payload will not succeed; the entry needs operator attention.
type ConflictError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
}

func (e *ConflictError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("central rejected request (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("central rejected request (%d): %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err (anywhere in its chain) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsConflict reports whether err (anywhere in its chain) is a definitive rejection.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsConflict extracts the conflict error from the chain, if present.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
