package history

import "errors"

var (
	// ErrMissingInput is returned when a scan request carries neither
	// invoice text nor a file payload.
	ErrMissingInput = errors.New("missing invoice text or file")

	// ErrNotFound is returned when a history entry does not exist.
	// Entries owned by someone else report the same error, so a caller
	// cannot probe for the existence of foreign ids.
	ErrNotFound = errors.New("history entry not found")

	// ErrValidation is returned when request input fails validation.
	ErrValidation = errors.New("invalid request input")
)
