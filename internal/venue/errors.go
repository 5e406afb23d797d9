package venue

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the orchestrator's recoverable/fatal
// classifier.
var (
	// ErrContractCreationTimeout fires when the venue does not acknowledge a
	// purchase within the creation timeout.
	ErrContractCreationTimeout = errors.New("contract creation timed out")

	// ErrMaxConnectAttempts fires when the bounded reconnect loop gives up.
	ErrMaxConnectAttempts = errors.New("maximum connection attempts exceeded")

	// ErrConnectionClosed fires on requests against a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
)

// ConnectionError wraps transport-level failures; the orchestrator treats
// these as recoverable.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("venue connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Well-known venue API error codes.
const (
	CodeInsufficientBalance   = "InsufficientBalance"
	CodeAuthorizationRequired = "AuthorizationRequired"
	CodeInvalidContract       = "InvalidContract"
)

// APIError is a structured rejection returned by the venue.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("venue api error %s: %s", e.Code, e.Message)
}

// IsReauthRequired reports whether the error calls for re-authentication
// before retrying.
func IsReauthRequired(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == CodeAuthorizationRequired
	}
	return false
}
