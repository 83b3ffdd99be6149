package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Network selects the chain a strategy runs against.
type Network string

const (
	NetworkPreview Network = "preview"
	NetworkMainnet Network = "mainnet"
)

// ErrUnknownNetwork is returned for network names other than preview and mainnet.
var ErrUnknownNetwork = errors.New("unknown network")

// Seconds added to a slot number to obtain unix time.
const (
	previewSlotOffset uint64 = 1666656000
	mainnetSlotOffset uint64 = 1591566291
)

// ParseNetwork accepts a case-insensitive network name.
func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	if err := n.Validate(); err != nil {
		return "", err
	}
	return n, nil
}

// Validate checks that n is a known network.
func (n Network) Validate() error {
	switch n {
	case NetworkPreview, NetworkMainnet:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownNetwork, string(n))
}

// ToUnixMillis converts a slot to unix time in milliseconds.
func (n Network) ToUnixMillis(slot uint64) uint64 {
	offset := previewSlotOffset
	if n == NetworkMainnet {
		offset = mainnetSlotOffset
	}
	return (slot + offset) * 1000
}

// RelayURL returns the default execution relay endpoint.
func (n Network) RelayURL() string {
	if n == NetworkMainnet {
		return "http://sse-relay.sundae.fi/publish"
	}
	return "http://sse-relay.preview.sundae.fi/publish"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Network) UnmarshalText(text []byte) error {
	parsed, err := ParseNetwork(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
