package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrNoteNotFound indicates the requested note does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrNoteNotFound = errors.New("note not found")

	// ErrOccurrenceNotFound indicates a (cloze id, occurrence) reference did
	// not resolve against the current note body, typically because an edit
	// removed or reordered it. API layer should map this to HTTP 409 Conflict,
	// signalling the client to re-parse and retry.
	ErrOccurrenceNotFound = errors.New("cloze occurrence not found")

	// ErrNothingToNormalize indicates the note's cloze ids are already
	// contiguous, so normalization would be a no-op.
	ErrNothingToNormalize = errors.New("cloze ids are already contiguous")
)
