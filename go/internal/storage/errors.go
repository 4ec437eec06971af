package storage

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrInvalidInput indicates a malformed or incomplete record.
	ErrInvalidInput = errors.New("storage: invalid input")

	// ErrInsufficientBalance indicates a coin adjustment would take a
	// team's balance below zero.
	ErrInsufficientBalance = errors.New("storage: insufficient balance")
)
