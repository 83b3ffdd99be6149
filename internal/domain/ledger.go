package domain

import (
	"bytes"
	"fmt"
)

// OutputReference identifies a transaction output.
// Equality is used to match spent inputs against tracked orders.
type OutputReference struct {
	TransactionID HexBytes `json:"txHash"` // 32-byte transaction hash
	OutputIndex   uint64   `json:"index"`  // position in the transaction's outputs
}

// String renders the reference as "txhash#index".
func (r OutputReference) String() string {
	return fmt.Sprintf("%s#%d", r.TransactionID, r.OutputIndex)
}

// Equal reports whether both references point at the same output.
func (r OutputReference) Equal(other OutputReference) bool {
	return r.OutputIndex == other.OutputIndex && bytes.Equal(r.TransactionID, other.TransactionID)
}

// Asset is one native token quantity under a policy.
type Asset struct {
	Name   HexBytes `json:"name"`
	Amount uint64   `json:"amount"`
}

// Multiasset groups the tokens of one minting policy.
type Multiasset struct {
	PolicyID HexBytes `json:"policyId"`
	Assets   []Asset  `json:"assets"`
}

// TxOutput is a snapshot of an unspent output as delivered by the chain follower.
type TxOutput struct {
	Address HexBytes     `json:"address"`
	Coin    uint64       `json:"coin"`             // lovelace
	Assets  []Multiasset `json:"assets,omitempty"` // native tokens
	Datum   HexBytes     `json:"datum,omitempty"`  // inline datum CBOR, empty if none
}

// Tx is a confirmed transaction.
type Tx struct {
	Hash    HexBytes          `json:"hash"`
	Slot    uint64            `json:"slot"`
	Inputs  []OutputReference `json:"inputs"`
	Outputs []TxOutput        `json:"outputs"`
}

// OutputRef returns the reference of output i of the transaction.
func (tx Tx) OutputRef(i int) OutputReference {
	return OutputReference{TransactionID: tx.Hash, OutputIndex: uint64(i)}
}

// Utxo is a newly created output observed at Slot.
type Utxo struct {
	Slot   uint64          `json:"slot"`
	Ref    OutputReference `json:"ref"`
	Output TxOutput        `json:"output"`
}
