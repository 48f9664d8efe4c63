package auth

import "errors"

// Sentinel errors shared by the permission and temporary-password stores.
// Callers compare with errors.Is; the HTTP layer maps them to status codes.
var (
	ErrNotFound         = errors.New("auth: not found")
	ErrInvalidInput     = errors.New("auth: invalid input")
	ErrEmptyPassword    = errors.New("auth: empty password")
	ErrPasswordMismatch = errors.New("auth: password mismatch")
)
