package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the acting user may not touch the resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrInvalidOperation indicates the operation is not valid for the target entity.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInvalidArgument indicates a malformed or missing argument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
