package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrInvalidSession indicates that a session id is unknown or expired
	ErrInvalidSession = errors.New("invalid session_id")

	// ErrInputNotAllowed indicates input arrived while the interview was not waiting for it
	ErrInputNotAllowed = errors.New("input not allowed")

	// ErrInputTimeout indicates no input arrived within the waiting window
	ErrInputTimeout = errors.New("input timeout")

	// ErrSessionClosed indicates the interview has already terminated
	ErrSessionClosed = errors.New("session closed")

	// ErrOutputTimeout indicates the interview produced no new output within the waiting window
	ErrOutputTimeout = errors.New("output timeout")
)
