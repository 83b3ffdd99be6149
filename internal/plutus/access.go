package plutus

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrShape is returned when a data value does not have the expected form.
var ErrShape = errors.New("plutus: unexpected data shape")

// ExpectConstr checks that d is constructor tag with exactly arity fields
// and returns the fields. A negative arity accepts any field count.
func ExpectConstr(d Data, tag uint64, arity int) ([]Data, error) {
	c, ok := d.(Constr)
	if !ok {
		return nil, fmt.Errorf("%w: want constructor %d, got %T", ErrShape, tag, d)
	}
	if c.Tag != tag {
		return nil, fmt.Errorf("%w: want constructor %d, got %d", ErrShape, tag, c.Tag)
	}
	if arity >= 0 && len(c.Fields) != arity {
		return nil, fmt.Errorf("%w: constructor %d wants %d fields, got %d", ErrShape, tag, arity, len(c.Fields))
	}
	return c.Fields, nil
}

// AsConstr returns d as a constructor.
func AsConstr(d Data) (Constr, error) {
	c, ok := d.(Constr)
	if !ok {
		return Constr{}, fmt.Errorf("%w: want constructor, got %T", ErrShape, d)
	}
	return c, nil
}

// AsBytes returns the bytes of a byte string.
func AsBytes(d Data) ([]byte, error) {
	b, ok := d.(Bytes)
	if !ok {
		return nil, fmt.Errorf("%w: want bytes, got %T", ErrShape, d)
	}
	return []byte(b), nil
}

// AsBigInt returns a copy of an integer value.
func AsBigInt(d Data) (*big.Int, error) {
	i, ok := d.(Int)
	if !ok {
		return nil, fmt.Errorf("%w: want integer, got %T", ErrShape, d)
	}
	if i.Value == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(i.Value), nil
}

// AsUint64 returns an integer that must fit an unsigned 64-bit value.
func AsUint64(d Data) (uint64, error) {
	v, err := AsBigInt(d)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: integer %s out of uint64 range", ErrShape, v)
	}
	return v.Uint64(), nil
}

// AsList returns list elements. A non-negative n requires exactly n elements.
func AsList(d Data, n int) ([]Data, error) {
	l, ok := d.(List)
	if !ok {
		return nil, fmt.Errorf("%w: want list, got %T", ErrShape, d)
	}
	if n >= 0 && len(l) != n {
		return nil, fmt.Errorf("%w: want list of %d, got %d", ErrShape, n, len(l))
	}
	return []Data(l), nil
}

// AsMap returns the pairs of a map.
func AsMap(d Data) (Map, error) {
	m, ok := d.(Map)
	if !ok {
		return nil, fmt.Errorf("%w: want map, got %T", ErrShape, d)
	}
	return m, nil
}

// AsBool decodes a fieldless constructor 0 or 1.
func AsBool(d Data) (bool, error) {
	c, err := AsConstr(d)
	if err != nil {
		return false, err
	}
	if len(c.Fields) != 0 || c.Tag > 1 {
		return false, fmt.Errorf("%w: invalid bool constructor %d/%d", ErrShape, c.Tag, len(c.Fields))
	}
	return c.Tag == 1, nil
}

// AsOption decodes Some (constructor 0, one field) or None (constructor 1).
func AsOption(d Data) (Data, bool, error) {
	c, err := AsConstr(d)
	if err != nil {
		return nil, false, err
	}
	switch {
	case c.Tag == 0 && len(c.Fields) == 1:
		return c.Fields[0], true, nil
	case c.Tag == 1 && len(c.Fields) == 0:
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("%w: invalid option constructor %d/%d", ErrShape, c.Tag, len(c.Fields))
}
