package services

import "errors"

// Service errors
var (
	// Query errors
	ErrEmptyQuery = errors.New("search query is empty")

	// Upload errors
	ErrMissingUpload   = errors.New("both the gradebook and the hours export are required")
	ErrInvalidFileType = errors.New("invalid file type")

	// Export errors
	ErrUnknownExport = errors.New("unknown export kind")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
