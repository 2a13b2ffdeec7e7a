// Package common defines shared constants and sentinel errors used across
// filevault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Signup validation errors.
	ErrorEmailTaken    = errors.New("email already registered")
	ErrorUsernameTaken = errors.New("username already taken")

	// Upload validation errors.
	ErrorFileTooLarge        = errors.New("file too large")
	ErrorUnsupportedFileType = errors.New("file type not allowed")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorNotVerified  = errors.New("email not verified")

	// Session token errors (invalid, malformed or expired).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Download capability errors. Everything except ErrGrantExpired is
	// reported to clients as one undifferentiated "invalid link" class;
	// the distinct values exist for internal logging.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrGrantNotFound     = errors.New("download grant not found")
	ErrGrantAlreadyUsed  = errors.New("download grant already used")
	ErrGrantExpired      = errors.New("download grant expired")
)
