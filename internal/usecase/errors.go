package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrNotFound              = errors.New("resource not found")
	ErrInconsistent          = errors.New("ranking state inconsistent")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
