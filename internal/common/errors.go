// Package common defines shared constants and sentinel errors used across
// the Spotter client core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("server unavailable")

	// Auth envelope errors (login/register response missing a usable token).
	ErrNoToken      = errors.New("no token in auth response")
	ErrInvalidToken = errors.New("invalid token")

	// Realtime errors.
	ErrNotConnected = errors.New("not connected")
)
