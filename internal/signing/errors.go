package signing

import "errors"

var (
	// ErrKeyNotFound is returned when no key with the requested name exists.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnsupportedAlgorithm is returned for algorithms other than ed25519.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

	// ErrInvalidKey is returned for key material of the wrong size or form.
	ErrInvalidKey = errors.New("invalid key material")
)
