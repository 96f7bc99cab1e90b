package hive_errors

import "errors"

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrStorage      = errors.New("storage failure")
	ErrTooLarge     = errors.New("file too large")
)
