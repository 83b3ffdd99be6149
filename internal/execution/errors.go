package execution

import "errors"

var (
	// ErrNoRelayURL is returned when no relay endpoint is known for a network.
	ErrNoRelayURL = errors.New("execution: no relay url for network")

	// ErrSign wraps signing failures.
	ErrSign = errors.New("execution: signing failed")
)
