package repository

import "errors"

var (
	// Common errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Credential errors
	ErrCredentialNotFound = errors.New("credential not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")

	// Reset code errors
	ErrResetCodeNotFound = errors.New("reset code not found")
)
