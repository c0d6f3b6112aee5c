package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a request without a live session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the principal may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidStatus indicates a status change that is not allowed.
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrInactiveUser indicates a soft-disabled account.
	ErrInactiveUser = errors.New("user is inactive")
)
