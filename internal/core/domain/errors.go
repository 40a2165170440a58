package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSession indicates the session context cannot authenticate requests.
	ErrInvalidSession = errors.New("invalid session")

	// ErrNoSession indicates no session context is active.
	ErrNoSession = errors.New("no active session")

	// Fallback Errors.

	// ErrFallbackNotConfigured indicates no fallback service URL is set.
	ErrFallbackNotConfigured = errors.New("fallback service not configured")

	// ErrFallbackCredentials indicates the fallback login credentials are missing
	// from the environment.
	ErrFallbackCredentials = errors.New("fallback credentials not configured")

	// ErrFallbackUnreachable indicates the fallback service did not answer.
	ErrFallbackUnreachable = errors.New("fallback service unreachable")

	// ErrFallbackFailed indicates the fallback service answered but could not
	// retrieve the document.
	ErrFallbackFailed = errors.New("fallback retrieval failed")

	// ErrFallbackDecode indicates the fallback payload could not be decoded.
	ErrFallbackDecode = errors.New("fallback payload decode failed")
)
