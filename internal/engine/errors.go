package engine

import "errors"

var (
	// ErrInvalidConfig is returned when the strategy configuration cannot be
	// decoded or fails validation.
	ErrInvalidConfig = errors.New("invalid strategy config")

	// ErrUnknownMethod is returned for inbound calls nobody handles.
	ErrUnknownMethod = errors.New("unknown method")
)
