// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Authentication decisions. None of these are retryable.
var (
	// ErrInvalidCredentials indicates a bad username or password at login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountNotFound is joined with ErrInvalidCredentials when the username is unknown.
	// It is only meant for logs; callers must treat it as ErrInvalidCredentials.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnauthenticated indicates a missing, invalid, expired or revoked refresh token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Token verification failures produced by the token issuer.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrBadSignature   = errors.New("token signature invalid")
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation")

	// ErrUnavailable marks infrastructure failures (store unreachable, hasher failure).
	// Errors wrapping it are safe to retry.
	ErrUnavailable = errors.New("service unavailable")
)

// Unavailable wraps an infrastructure error so that errors.Is(err, ErrUnavailable) holds.
// Nil stays nil and already wrapped errors are returned unchanged.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// IsRetryable reports whether err is an infrastructure failure rather than a decision.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
