package api

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")

	errTokenExpired = errors.New("persisted token expired")
)

// ValidationError is returned when input is rejected before any network call
// is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RequestError is returned when the server rejected the call with a
// non-success status. Detail carries the structured error body when one could
// be parsed.
type RequestError struct {
	Status int
	Detail string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Detail)
}

// NetworkError is returned when no response was obtained at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is returned when identity hydration failed after a token was
// already written.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication error: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
