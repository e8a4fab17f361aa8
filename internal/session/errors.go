package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyBootstrapped is returned by a second Bootstrap call on the same Manager.
	ErrAlreadyBootstrapped = errors.New("session: already bootstrapped")
	// ErrNotStarted is returned when the coordinator has not been started.
	ErrNotStarted = errors.New("session: manager not started")
	// ErrNotResolved is returned by HandleRedirect before bootstrap has resolved.
	ErrNotResolved = errors.New("session: bootstrap not resolved")
	// ErrNoCallback is returned by HandleRedirect for a location without redirect tokens.
	ErrNoCallback = errors.New("session: location carries no sign-in callback")
	// ErrTokenConsumed is returned when a redirect token was already exchanged.
	ErrTokenConsumed = errors.New("session: redirect token already used")
)

// SessionResolutionTimeoutError reports that bootstrap gave up waiting on the
// identity provider and resolved to Unauthenticated.
type SessionResolutionTimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *SessionResolutionTimeoutError) Error() string {
	return fmt.Sprintf("session resolution timed out during %s after %s", e.Stage, e.Timeout)
}

func (e *SessionResolutionTimeoutError) Unwrap() error { return context.DeadlineExceeded }

// CallbackError is an error returned by the provider in the redirect fragment.
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description == "" {
		return "sign-in failed: " + e.Code
	}
	return fmt.Sprintf("sign-in failed: %s: %s", e.Code, e.Description)
}
