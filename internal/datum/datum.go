// Package datum maps the protocol's typed datums to and from plutus data.
//
// Each type has a ToData method and a FromData method sharing the
// constructor tags declared in tags.go, so encoding and decoding cannot
// drift apart.
package datum

import (
	"errors"
	"fmt"

	"sundae-strategies/internal/plutus"
)

// ErrMismatch is returned by Decode when bytes do not describe the requested type.
var ErrMismatch = errors.New("datum: shape mismatch")

// Encodable is a typed datum that can be turned into plutus data.
type Encodable interface {
	ToData() plutus.Data
}

// decodable is the pointer side of a typed datum.
type decodable[T any] interface {
	*T
	FromData(plutus.Data) error
}

// Serialize encodes a typed datum. Encoding a well-formed value never fails.
func Serialize(v Encodable) []byte {
	return plutus.MustMarshal(v.ToData())
}

// Decode parses bytes into T, reporting why a value did not match.
func Decode[T any, PT decodable[T]](b []byte) (T, error) {
	var v T
	d, err := plutus.Unmarshal(b)
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	if err := PT(&v).FromData(d); err != nil {
		return v, fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return v, nil
}

// TryParse parses bytes into T. Any decoding or shape failure yields false.
func TryParse[T any, PT decodable[T]](b []byte) (T, bool) {
	v, err := Decode[T, PT](b)
	return v, err == nil
}

func bytesOption(b []byte) plutus.Data {
	if b == nil {
		return plutus.None()
	}
	return plutus.Some(plutus.Bytes(b))
}

func decodeBytesOption(d plutus.Data) ([]byte, error) {
	inner, ok, err := plutus.AsOption(d)
	if err != nil || !ok {
		return nil, err
	}
	return plutus.AsBytes(inner)
}
