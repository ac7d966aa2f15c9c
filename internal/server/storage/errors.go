package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that refresh token is not in the active index
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrOrderExists indicates that a ledger record for the session reference already exists
	ErrOrderExists = errors.New("order record already exists")
)
