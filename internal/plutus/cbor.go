package plutus

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

const (
	chunkSize = 64

	tagPositiveBignum = 2
	tagNegativeBignum = 3
	tagGeneralConstr  = 102
	tagSmallConstr    = 121
	tagLargeConstr    = 1280
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		BigIntConvert: cbor.BigIntConvertShortest,
		NilContainers: cbor.NilContainerAsEmpty,
		IndefLength:   cbor.IndefLengthAllowed,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("plutus: cbor encoder init: %v", err))
	}

	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  1024,
		MaxArrayElements: 1 << 20,
		MaxMapPairs:      1 << 20,
		IndefLength:      cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("plutus: cbor decoder init: %v", err))
	}
}

// ErrMalformed is returned when bytes are not a valid data encoding.
var ErrMalformed = errors.New("plutus: malformed data")

// Marshal encodes d as CBOR.
func Marshal(d Data) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil data", ErrMalformed)
	}
	return d.MarshalCBOR()
}

// MustMarshal is Marshal for values known to be well formed.
func MustMarshal(d Data) []byte {
	b, err := Marshal(d)
	if err != nil {
		panic(err)
	}
	return b
}

// Unmarshal decodes exactly one data item. Trailing bytes are an error.
func Unmarshal(data []byte) (Data, error) {
	var raw cbor.RawMessage
	rest, err := decMode.UnmarshalFirst(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	}
	return decodeItem(raw)
}

// Diagnose returns the CBOR diagnostic notation of an encoded item.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// Equal reports whether a and b have the same encoding.
func Equal(a, b Data) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, err := a.MarshalCBOR()
	if err != nil {
		return false
	}
	bb, err := b.MarshalCBOR()
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// MarshalCBOR implements cbor.Marshaler.
func (c Constr) MarshalCBOR() ([]byte, error) {
	var fields bytes.Buffer
	if err := writeItems(&fields, c.Fields); err != nil {
		return nil, err
	}

	switch {
	case c.Tag <= 6:
		return encMode.Marshal(cbor.RawTag{Number: tagSmallConstr + c.Tag, Content: fields.Bytes()})
	case c.Tag <= 127:
		return encMode.Marshal(cbor.RawTag{Number: tagLargeConstr + c.Tag - 7, Content: fields.Bytes()})
	}

	idx, err := encMode.Marshal(c.Tag)
	if err != nil {
		return nil, err
	}
	content := make([]byte, 0, 1+len(idx)+fields.Len())
	content = append(content, 0x82)
	content = append(content, idx...)
	content = append(content, fields.Bytes()...)
	return encMode.Marshal(cbor.RawTag{Number: tagGeneralConstr, Content: content})
}

// MarshalCBOR implements cbor.Marshaler.
func (i Int) MarshalCBOR() ([]byte, error) {
	if i.Value == nil {
		return encMode.Marshal(0)
	}
	return encMode.Marshal(i.Value)
}

// MarshalCBOR implements cbor.Marshaler.
func (b Bytes) MarshalCBOR() ([]byte, error) {
	if len(b) <= chunkSize {
		return encMode.Marshal([]byte(b))
	}

	var buf bytes.Buffer
	enc := encMode.NewEncoder(&buf)
	if err := enc.StartIndefiniteByteString(); err != nil {
		return nil, err
	}
	for start := 0; start < len(b); start += chunkSize {
		end := min(start+chunkSize, len(b))
		if err := enc.Encode([]byte(b[start:end])); err != nil {
			return nil, err
		}
	}
	if err := enc.EndIndefinite(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCBOR implements cbor.Marshaler.
func (l List) MarshalCBOR() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeItems(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCBOR implements cbor.Marshaler.
func (m Map) MarshalCBOR() ([]byte, error) {
	out := appendHead(nil, 5, uint64(len(m)))
	for _, p := range m {
		if p.Key == nil || p.Value == nil {
			return nil, fmt.Errorf("%w: nil map entry", ErrMalformed)
		}
		k, err := p.Key.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		v, err := p.Value.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		out = append(out, k...)
		out = append(out, v...)
	}
	return out, nil
}

// writeItems writes items as an indefinite array, or as the definite empty
// array when there are none.
func writeItems(buf *bytes.Buffer, items []Data) error {
	if len(items) == 0 {
		buf.WriteByte(0x80)
		return nil
	}

	enc := encMode.NewEncoder(buf)
	if err := enc.StartIndefiniteArray(); err != nil {
		return err
	}
	for _, item := range items {
		if item == nil {
			return fmt.Errorf("%w: nil list element", ErrMalformed)
		}
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return enc.EndIndefinite()
}

func appendHead(out []byte, major byte, n uint64) []byte {
	mt := major << 5
	switch {
	case n < 24:
		return append(out, mt|byte(n))
	case n <= 0xff:
		return append(out, mt|24, byte(n))
	case n <= 0xffff:
		return append(out, mt|25, byte(n>>8), byte(n))
	case n <= 0xffffffff:
		return append(out, mt|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		return append(out, mt|27,
			byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}

// readHead parses the initial byte and argument of an item.
func readHead(data []byte) (major byte, arg uint64, size int, indefinite bool, err error) {
	if len(data) == 0 {
		return 0, 0, 0, false, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}
	major = data[0] >> 5
	info := data[0] & 0x1f
	switch {
	case info < 24:
		return major, uint64(info), 1, false, nil
	case info == 31:
		return major, 0, 1, true, nil
	case info > 27:
		return 0, 0, 0, false, fmt.Errorf("%w: reserved additional info %d", ErrMalformed, info)
	}
	n := 1 << (info - 24)
	if len(data) < 1+n {
		return 0, 0, 0, false, fmt.Errorf("%w: truncated head", ErrMalformed)
	}
	for _, b := range data[1 : 1+n] {
		arg = arg<<8 | uint64(b)
	}
	return major, arg, 1 + n, false, nil
}

func decodeItem(raw []byte) (Data, error) {
	major, _, _, _, err := readHead(raw)
	if err != nil {
		return nil, err
	}

	switch major {
	case 0, 1:
		return decodeInt(raw)
	case 2:
		var b []byte
		if err := decMode.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: bytes: %v", ErrMalformed, err)
		}
		if b == nil {
			b = []byte{}
		}
		return Bytes(b), nil
	case 4:
		items, err := decodeArray(raw)
		if err != nil {
			return nil, err
		}
		return List(items), nil
	case 5:
		return decodeMap(raw)
	case 6:
		return decodeTag(raw)
	}
	return nil, fmt.Errorf("%w: unsupported major type %d", ErrMalformed, major)
}

func decodeInt(raw []byte) (Data, error) {
	var n big.Int
	if err := decMode.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%w: integer: %v", ErrMalformed, err)
	}
	return Int{Value: &n}, nil
}

func decodeArray(raw []byte) ([]Data, error) {
	var elems []cbor.RawMessage
	if err := decMode.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: array: %v", ErrMalformed, err)
	}
	items := make([]Data, 0, len(elems))
	for _, e := range elems {
		d, err := decodeItem(e)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

func decodeMap(raw []byte) (Data, error) {
	_, count, size, indefinite, err := readHead(raw)
	if err != nil {
		return nil, err
	}
	rest := raw[size:]

	next := func() (Data, error) {
		var item cbor.RawMessage
		r, err := decMode.UnmarshalFirst(rest, &item)
		if err != nil {
			return nil, fmt.Errorf("%w: map entry: %v", ErrMalformed, err)
		}
		rest = r
		return decodeItem(item)
	}

	m := Map{}
	for i := uint64(0); indefinite || i < count; i++ {
		if indefinite {
			if len(rest) == 0 {
				return nil, fmt.Errorf("%w: unterminated map", ErrMalformed)
			}
			if rest[0] == 0xff {
				break
			}
		}
		k, err := next()
		if err != nil {
			return nil, err
		}
		v, err := next()
		if err != nil {
			return nil, err
		}
		m = append(m, Pair{Key: k, Value: v})
	}
	return m, nil
}

func decodeTag(raw []byte) (Data, error) {
	_, number, _, _, err := readHead(raw)
	if err != nil {
		return nil, err
	}
	if number == tagPositiveBignum || number == tagNegativeBignum {
		return decodeInt(raw)
	}

	var tag cbor.RawTag
	if err := decMode.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("%w: tag: %v", ErrMalformed, err)
	}

	switch {
	case number >= tagSmallConstr && number <= tagSmallConstr+6:
		fields, err := decodeArray(tag.Content)
		if err != nil {
			return nil, err
		}
		return NewConstr(number-tagSmallConstr, fields...), nil
	case number >= tagLargeConstr && number <= tagLargeConstr+120:
		fields, err := decodeArray(tag.Content)
		if err != nil {
			return nil, err
		}
		return NewConstr(number-tagLargeConstr+7, fields...), nil
	case number == tagGeneralConstr:
		var parts []cbor.RawMessage
		if err := decMode.Unmarshal(tag.Content, &parts); err != nil || len(parts) != 2 {
			return nil, fmt.Errorf("%w: general constructor must be [index, fields]", ErrMalformed)
		}
		var idx uint64
		if err := decMode.Unmarshal(parts[0], &idx); err != nil {
			return nil, fmt.Errorf("%w: constructor index: %v", ErrMalformed, err)
		}
		fields, err := decodeArray(parts[1])
		if err != nil {
			return nil, err
		}
		return NewConstr(idx, fields...), nil
	}
	return nil, fmt.Errorf("%w: unexpected tag %d", ErrMalformed, number)
}
