package domain

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAssetID is returned for asset ids not in "policyHex.nameHex" form.
var ErrInvalidAssetID = errors.New("invalid asset id")

// AssetID names a token by policy id and asset name.
// The zero value is ADA.
type AssetID struct {
	PolicyID HexBytes
	Name     HexBytes
}

// ParseAssetID parses "policyHex.assetNameHex". "." alone is ADA.
func ParseAssetID(s string) (AssetID, error) {
	policy, name, ok := strings.Cut(s, ".")
	if !ok {
		return AssetID{}, fmt.Errorf("%w %q: expected policyId.assetName", ErrInvalidAssetID, s)
	}
	p, err := hex.DecodeString(policy)
	if err != nil {
		return AssetID{}, fmt.Errorf("%w %q: policyId was not hex encoded", ErrInvalidAssetID, s)
	}
	n, err := hex.DecodeString(name)
	if err != nil {
		return AssetID{}, fmt.Errorf("%w %q: assetName was not hex encoded", ErrInvalidAssetID, s)
	}
	return AssetID{PolicyID: p, Name: n}, nil
}

// String renders the id in the form ParseAssetID accepts.
func (a AssetID) String() string {
	return a.PolicyID.String() + "." + a.Name.String()
}

// IsADA reports whether the id names the native coin.
func (a AssetID) IsADA() bool {
	return len(a.PolicyID) == 0 && len(a.Name) == 0
}

// Equal compares policy and name.
func (a AssetID) Equal(other AssetID) bool {
	return bytes.Equal(a.PolicyID, other.PolicyID) && bytes.Equal(a.Name, other.Name)
}

// MarshalText implements encoding.TextMarshaler.
func (a AssetID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AssetID) UnmarshalText(text []byte) error {
	id, err := ParseAssetID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// AmountOf returns how much of asset the output holds. ADA is the coin field.
func (o TxOutput) AmountOf(asset AssetID) uint64 {
	if asset.IsADA() {
		return o.Coin
	}
	var total uint64
	for _, ma := range o.Assets {
		if !bytes.Equal(ma.PolicyID, asset.PolicyID) {
			continue
		}
		for _, a := range ma.Assets {
			if bytes.Equal(a.Name, asset.Name) {
				total += a.Amount
			}
		}
	}
	return total
}
