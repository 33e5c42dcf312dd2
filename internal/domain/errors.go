// internal/domain/errors.go
package domain

import "errors"

var (
	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")

	// Formula-related errors
	ErrUnknownField = errors.New("unknown field")
	ErrCompile      = errors.New("formula compilation failed")

	// Report-related errors
	ErrReportNotFound = errors.New("report not found")
	ErrReportExists   = errors.New("report already exists")
	ErrStoreDisabled  = errors.New("report store is disabled")
)
