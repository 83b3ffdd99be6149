package strategy

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/execution"
)

// Duration is a time.Duration that reads "20m" style strings or integer seconds.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		d.Duration = v
		return nil
	}
	secs, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"20m\" or seconds: %s", b)
	}
	d.Duration = time.Duration(secs) * time.Second
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Common holds the settings shared by every strategy.
type Common struct {
	Network  string    `json:"network"`
	ValidFor *Duration `json:"validFor,omitempty"`

	network domain.Network
}

func (c *Common) validate() error {
	n, err := domain.ParseNetwork(c.Network)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if c.ValidFor != nil && c.ValidFor.Duration <= 0 {
		return fmt.Errorf("validFor: must be positive")
	}
	c.network = n
	return nil
}

// Net returns the parsed network.
func (c Common) Net() domain.Network {
	return c.network
}

// Window returns the validity range of an execution emitted at slot.
func (c Common) Window(slot uint64) datum.Interval {
	w := execution.DefaultValidFor
	if c.ValidFor != nil {
		w = c.ValidFor.Duration
	}
	return execution.ValidityWindow(c.network, slot, w)
}

func parseToken(field, s string) (domain.AssetID, error) {
	id, err := domain.ParseAssetID(s)
	if err != nil {
		return domain.AssetID{}, fmt.Errorf("%s: %w", field, err)
	}
	return id, nil
}

func parseHexField(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: not hex encoded", field)
	}
	return b, nil
}
