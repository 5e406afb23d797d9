package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for lookups of unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionAlreadyRunning rejects a second concurrent session for the
	// same account.
	ErrSessionAlreadyRunning = errors.New("session already running for account")

	// ErrNoCachedSession means a recoverable error asked for a retry but the
	// session parameters were already cleared; that makes the error fatal.
	ErrNoCachedSession = errors.New("no cached session parameters to retry with")
)

// ValidationError reports a bad session parameter. It is never retried; the
// session does not start.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid session parameter %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a parameter validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
