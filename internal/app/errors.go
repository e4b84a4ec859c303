package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrNoContent         = errors.New("no text content extracted")
	ErrInvalidCredential = errors.New("invalid password")
	ErrAuthDisabled      = errors.New("authentication is disabled")
)
