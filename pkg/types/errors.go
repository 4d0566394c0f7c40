package types

import "errors"

// Reference and paging errors
var (
	// ErrInvalidSecureHash is returned when a transaction hash is not 64 hex characters
	ErrInvalidSecureHash = errors.New("invalid secure hash")

	// ErrInvalidOutputIndex is returned when a state reference has a negative output index
	ErrInvalidOutputIndex = errors.New("invalid output index")

	// ErrInvalidStateRef is returned when a state reference string cannot be parsed
	ErrInvalidStateRef = errors.New("invalid state reference")

	// ErrInvalidStateStatus is returned for unknown status names
	ErrInvalidStateStatus = errors.New("invalid state status")

	// ErrInvalidDirection is returned for unknown sort directions
	ErrInvalidDirection = errors.New("invalid sort direction")

	// ErrTimestampOutOfRange is returned for instants that do not fit in int64 Unix nanoseconds
	ErrTimestampOutOfRange = errors.New("timestamp out of range")
)
