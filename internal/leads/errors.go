package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidStatus is returned when a status is outside the configured vocabulary
	ErrInvalidStatus = errors.New("status outside the configured vocabulary")
)
