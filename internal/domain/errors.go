package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrEmptyMessage      = errors.New("domain: message cannot be empty")
	ErrPersistenceFailed = errors.New("domain: persistence failed")
)
