package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrSessionChanged - сохраненная сессия заменена другим процессом
	// (повторный login или refresh) после того, как ее прочитали
	ErrSessionChanged = errors.New("stored session was replaced")
)
