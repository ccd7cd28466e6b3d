// Package common defines shared constants and sentinel errors used across
// willtrail components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors. ErrorNotFound deliberately covers "does not
	// exist", "owned by someone else" and "token expired" alike so that the
	// transport layer cannot leak which one it was.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorConflict     = errors.New("already exists")

	// Validation errors (disallowed mime type, oversized upload, malformed
	// payloads). Wrapped with detail the caller can act on.
	ErrorValidation = errors.New("validation error")

	// Envelope errors. A malformed or undecryptable sealed blob is fatal for
	// that single operation only.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Auth errors (invalid or malformed access token).
	ErrInvalidToken = errors.New("invalid token")
)
