package datum

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/plutus"
)

// SingletonValue is a (policy, asset name, amount) triple.
type SingletonValue struct {
	PolicyID  []byte
	AssetName []byte
	Amount    uint64
}

// Value builds a SingletonValue for asset.
func Value(asset domain.AssetID, amount uint64) SingletonValue {
	return SingletonValue{PolicyID: asset.PolicyID, AssetName: asset.Name, Amount: amount}
}

func (v SingletonValue) ToData() plutus.Data {
	return plutus.List{plutus.Bytes(nonNil(v.PolicyID)), plutus.Bytes(nonNil(v.AssetName)), plutus.NewUint(v.Amount)}
}

func (v *SingletonValue) FromData(d plutus.Data) error {
	items, err := plutus.AsList(d, 3)
	if err != nil {
		return fmt.Errorf("singleton value: %w", err)
	}
	policy, err := plutus.AsBytes(items[0])
	if err != nil {
		return fmt.Errorf("singleton policy: %w", err)
	}
	name, err := plutus.AsBytes(items[1])
	if err != nil {
		return fmt.Errorf("singleton asset name: %w", err)
	}
	amount, err := plutus.AsUint64(items[2])
	if err != nil {
		return fmt.Errorf("singleton amount: %w", err)
	}
	*v = SingletonValue{PolicyID: policy, AssetName: name, Amount: amount}
	return nil
}

// StrategyAuthorization names who may execute a strategy order.
type StrategyAuthorization struct {
	Signer []byte
}

func (a StrategyAuthorization) ToData() plutus.Data {
	return plutus.NewConstr(tagAuthSignature, plutus.Bytes(nonNil(a.Signer)))
}

func (a *StrategyAuthorization) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagAuthSignature, 1)
	if err != nil {
		return fmt.Errorf("strategy auth: %w", err)
	}
	signer, err := plutus.AsBytes(fields[0])
	if err != nil {
		return fmt.Errorf("strategy signer: %w", err)
	}
	a.Signer = signer
	return nil
}

// Order is either a delegated Strategy or a concrete Swap.
type Order struct {
	Kind        OrderKind
	Auth        StrategyAuthorization // Strategy
	Offer       SingletonValue        // Swap
	MinReceived SingletonValue        // Swap
}

// StrategyOrder delegates execution to signer.
func StrategyOrder(signer []byte) Order {
	return Order{Kind: OrderStrategy, Auth: StrategyAuthorization{Signer: signer}}
}

// SwapOrder offers one value in exchange for at least another.
func SwapOrder(offer, minReceived SingletonValue) Order {
	return Order{Kind: OrderSwap, Offer: offer, MinReceived: minReceived}
}

func (o Order) ToData() plutus.Data {
	if o.Kind == OrderSwap {
		return plutus.NewConstr(tagOrderSwap, o.Offer.ToData(), o.MinReceived.ToData())
	}
	return plutus.NewConstr(tagOrderStrategy, o.Auth.ToData())
}

func (o *Order) FromData(d plutus.Data) error {
	c, err := plutus.AsConstr(d)
	if err != nil {
		return fmt.Errorf("order: %w", err)
	}
	switch c.Tag {
	case tagOrderStrategy:
		fields, err := plutus.ExpectConstr(d, tagOrderStrategy, 1)
		if err != nil {
			return fmt.Errorf("order: %w", err)
		}
		var auth StrategyAuthorization
		if err := auth.FromData(fields[0]); err != nil {
			return err
		}
		*o = Order{Kind: OrderStrategy, Auth: auth}
	case tagOrderSwap:
		fields, err := plutus.ExpectConstr(d, tagOrderSwap, 2)
		if err != nil {
			return fmt.Errorf("order: %w", err)
		}
		var offer, minReceived SingletonValue
		if err := offer.FromData(fields[0]); err != nil {
			return err
		}
		if err := minReceived.FromData(fields[1]); err != nil {
			return err
		}
		*o = Order{Kind: OrderSwap, Offer: offer, MinReceived: minReceived}
	default:
		return fmt.Errorf("order: unknown constructor %d", c.Tag)
	}
	return nil
}

// Destination says where the proceeds of an order go.
// Address and Datum of a Fixed destination are kept as raw data.
type Destination struct {
	Kind    DestinationKind
	Address plutus.Data
	Datum   plutus.Data
}

func (d Destination) ToData() plutus.Data {
	if d.Kind == DestinationFixed && d.Address != nil && d.Datum != nil {
		return plutus.NewConstr(tagDestinationFixed, d.Address, d.Datum)
	}
	return plutus.NewConstr(tagDestinationSelf)
}

func (d *Destination) FromData(data plutus.Data) error {
	c, err := plutus.AsConstr(data)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	switch {
	case c.Tag == tagDestinationFixed && len(c.Fields) == 2:
		*d = Destination{Kind: DestinationFixed, Address: c.Fields[0], Datum: c.Fields[1]}
	case c.Tag == tagDestinationSelf && len(c.Fields) == 0:
		*d = Destination{Kind: DestinationSelf}
	default:
		return fmt.Errorf("destination: unexpected constructor %d/%d", c.Tag, len(c.Fields))
	}
	return nil
}

// OrderDatum is the inline datum of an order output.
type OrderDatum struct {
	PoolIdent      []byte // nil when the order may use any pool
	Owner          MultisigScript
	MaxProtocolFee *big.Int
	Destination    Destination
	Details        Order
	Extra          []byte
}

func (o OrderDatum) ToData() plutus.Data {
	return plutus.NewConstr(tagRecord,
		bytesOption(o.PoolIdent),
		o.Owner.ToData(),
		plutus.NewBigInt(o.MaxProtocolFee),
		o.Destination.ToData(),
		o.Details.ToData(),
		plutus.Bytes(nonNil(o.Extra)),
	)
}

func (o *OrderDatum) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagRecord, 6)
	if err != nil {
		return fmt.Errorf("order datum: %w", err)
	}
	var out OrderDatum
	if out.PoolIdent, err = decodeBytesOption(fields[0]); err != nil {
		return fmt.Errorf("order pool ident: %w", err)
	}
	if err := out.Owner.FromData(fields[1]); err != nil {
		return err
	}
	if out.MaxProtocolFee, err = plutus.AsBigInt(fields[2]); err != nil {
		return fmt.Errorf("order max protocol fee: %w", err)
	}
	if err := out.Destination.FromData(fields[3]); err != nil {
		return err
	}
	if err := out.Details.FromData(fields[4]); err != nil {
		return err
	}
	if out.Extra, err = plutus.AsBytes(fields[5]); err != nil {
		return fmt.Errorf("order extra: %w", err)
	}
	*o = out
	return nil
}

// StrategySigner returns the authorized signer of a Strategy order.
func (o OrderDatum) StrategySigner() ([]byte, bool) {
	if o.Details.Kind != OrderStrategy {
		return nil, false
	}
	return o.Details.Auth.Signer, true
}

// AuthorizedFor reports whether the order delegates execution to key.
func (o OrderDatum) AuthorizedFor(key []byte) bool {
	signer, ok := o.StrategySigner()
	return ok && bytes.Equal(signer, key)
}

// MarshalJSON stores the datum as the hex of its encoding.
func (o OrderDatum) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(Serialize(o)))
}

// UnmarshalJSON reads the hex form written by MarshalJSON.
func (o *OrderDatum) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("order datum: %w", err)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("order datum: %w", err)
	}
	v, err := Decode[OrderDatum](raw)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
