// Package plutus implements the generic on-chain data tree and its
// constructor-tagged CBOR encoding.
//
// Every typed datum in this module is mapped to and from a Data value;
// the byte form of a Data value is what other protocol participants see,
// so encoding must be byte-exact:
//
//   - constructors 0..6 use CBOR tags 121..127, 7..127 use 1280..1400,
//     anything else uses tag 102 wrapping [index, fields]
//   - non-empty field lists and lists are indefinite-length arrays,
//     empty ones are the definite empty array
//   - byte strings longer than 64 bytes are split into 64-byte chunks
//   - integers use the shortest CBOR integer, bignum tags beyond 64 bits
//   - maps are definite-length and keep their pair order
package plutus

import (
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Data is a node of the on-chain data tree.
type Data interface {
	cbor.Marshaler
	isData()
}

// Constr is a tagged constructor application.
type Constr struct {
	Tag    uint64
	Fields []Data
}

// Int is an arbitrary precision integer. A nil Value encodes as zero.
type Int struct {
	Value *big.Int
}

// Bytes is a byte string.
type Bytes []byte

// List is an ordered list of data values.
type List []Data

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   Data
	Value Data
}

// Map is an association list. Pair order is significant.
type Map []Pair

func (Constr) isData() {}
func (Int) isData()    {}
func (Bytes) isData()  {}
func (List) isData()   {}
func (Map) isData()    {}

// NewConstr builds a constructor with the given fields.
func NewConstr(tag uint64, fields ...Data) Constr {
	if fields == nil {
		fields = []Data{}
	}
	return Constr{Tag: tag, Fields: fields}
}

// NewInt wraps a signed integer.
func NewInt(v int64) Int {
	return Int{Value: big.NewInt(v)}
}

// NewUint wraps an unsigned integer.
func NewUint(v uint64) Int {
	return Int{Value: new(big.Int).SetUint64(v)}
}

// NewBigInt wraps a copy of v. A nil v is zero.
func NewBigInt(v *big.Int) Int {
	if v == nil {
		return Int{Value: new(big.Int)}
	}
	return Int{Value: new(big.Int).Set(v)}
}

// Bool encodes a boolean as constructor 0 (false) or 1 (true) with no fields.
func Bool(b bool) Constr {
	if b {
		return NewConstr(1)
	}
	return NewConstr(0)
}

// Some encodes a present optional value as constructor 0 with one field.
func Some(d Data) Constr {
	return NewConstr(0, d)
}

// None encodes an absent optional value as constructor 1 with no fields.
func None() Constr {
	return NewConstr(1)
}
