package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"binary-core/internal/venue"
)

// isRecoverable classifies a trade-loop error as transient. Transport
// failures, creation timeouts, and the two re-auth API codes are retried
// with backoff; everything else is fatal.
func isRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var connErr *venue.ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, venue.ErrContractCreationTimeout) {
		return true
	}
	var apiErr *venue.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case venue.CodeInsufficientBalance, venue.CodeAuthorizationRequired:
			return true
		}
	}
	return false
}

// recoverFrom backs off exponentially, then repairs the venue connection
// using the cached session parameters. A missing cache turns the recoverable
// error fatal.
func (o *Orchestrator) recoverFrom(ctx context.Context, cause error, attempt int) error {
	o.mu.Lock()
	cached := o.cached
	o.mu.Unlock()
	if cached == nil {
		return fmt.Errorf("%w (while recovering from: %v)", ErrNoCachedSession, cause)
	}

	backoff := retryBackoff(attempt)
	o.log.WithError(cause).WithFields(logrus.Fields{
		"attempt": attempt,
		"backoff": backoff,
	}).Warn("recoverable trade error, retrying")

	if err := sleep(ctx, o.clock, backoff); err != nil {
		return err
	}

	var connErr *venue.ConnectionError
	if errors.As(cause, &connErr) || errors.Is(cause, venue.ErrContractCreationTimeout) {
		if err := o.client.Connect(ctx); err != nil {
			return fmt.Errorf("reconnect during recovery: %w", err)
		}
	}

	var apiErr *venue.APIError
	if errors.As(cause, &apiErr) {
		// Both re-auth codes get a fresh authorization before the retry.
		if err := o.client.Authorize(ctx, cached.Token); err != nil {
			return fmt.Errorf("re-authorize during recovery: %w", err)
		}
	}
	return nil
}
