package datum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/plutus"
)

// ErrEmptyReserve is returned when a pool output holds none of an asset it prices.
var ErrEmptyReserve = errors.New("datum: pool reserve is empty")

// PoolDatum is the inline datum of a liquidity pool output.
type PoolDatum struct {
	Identifier           []byte
	AssetA               domain.AssetID
	AssetB               domain.AssetID
	CirculatingLP        *big.Int
	BidFeesPer10Thousand *big.Int
	AskFeesPer10Thousand *big.Int
	FeeManager           *MultisigScript // nil when absent
	MarketOpen           *big.Int
	ProtocolFees         *big.Int // lovelace held by the pool that is not liquidity
}

func assetPair(a domain.AssetID) plutus.Data {
	return plutus.List{plutus.Bytes(nonNil(a.PolicyID)), plutus.Bytes(nonNil(a.Name))}
}

func decodeAssetPair(d plutus.Data) (domain.AssetID, error) {
	items, err := plutus.AsList(d, 2)
	if err != nil {
		return domain.AssetID{}, err
	}
	policy, err := plutus.AsBytes(items[0])
	if err != nil {
		return domain.AssetID{}, err
	}
	name, err := plutus.AsBytes(items[1])
	if err != nil {
		return domain.AssetID{}, err
	}
	return domain.AssetID{PolicyID: policy, Name: name}, nil
}

func (p PoolDatum) ToData() plutus.Data {
	feeManager := plutus.Data(plutus.None())
	if p.FeeManager != nil {
		feeManager = plutus.Some(p.FeeManager.ToData())
	}
	return plutus.NewConstr(tagRecord,
		plutus.Bytes(nonNil(p.Identifier)),
		plutus.List{assetPair(p.AssetA), assetPair(p.AssetB)},
		plutus.NewBigInt(p.CirculatingLP),
		plutus.NewBigInt(p.BidFeesPer10Thousand),
		plutus.NewBigInt(p.AskFeesPer10Thousand),
		feeManager,
		plutus.NewBigInt(p.MarketOpen),
		plutus.NewBigInt(p.ProtocolFees),
	)
}

func (p *PoolDatum) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagRecord, 8)
	if err != nil {
		return fmt.Errorf("pool datum: %w", err)
	}
	var out PoolDatum
	if out.Identifier, err = plutus.AsBytes(fields[0]); err != nil {
		return fmt.Errorf("pool identifier: %w", err)
	}
	pair, err := plutus.AsList(fields[1], 2)
	if err != nil {
		return fmt.Errorf("pool assets: %w", err)
	}
	if out.AssetA, err = decodeAssetPair(pair[0]); err != nil {
		return fmt.Errorf("pool asset a: %w", err)
	}
	if out.AssetB, err = decodeAssetPair(pair[1]); err != nil {
		return fmt.Errorf("pool asset b: %w", err)
	}

	ints := []**big.Int{&out.CirculatingLP, &out.BidFeesPer10Thousand, &out.AskFeesPer10Thousand}
	for i, dst := range ints {
		if *dst, err = plutus.AsBigInt(fields[2+i]); err != nil {
			return fmt.Errorf("pool field %d: %w", 2+i, err)
		}
	}

	inner, ok, err := plutus.AsOption(fields[5])
	if err != nil {
		return fmt.Errorf("pool fee manager: %w", err)
	}
	if ok {
		var fm MultisigScript
		if err := fm.FromData(inner); err != nil {
			return err
		}
		out.FeeManager = &fm
	}

	if out.MarketOpen, err = plutus.AsBigInt(fields[6]); err != nil {
		return fmt.Errorf("pool market open: %w", err)
	}
	if out.ProtocolFees, err = plutus.AsBigInt(fields[7]); err != nil {
		return fmt.Errorf("pool protocol fees: %w", err)
	}
	*p = out
	return nil
}

// Reserves returns the amounts of asset A and asset B held by the pool
// output. When asset A is ADA the protocol fees are excluded from it.
func (p PoolDatum) Reserves(out domain.TxOutput) (decimal.Decimal, decimal.Decimal) {
	reserveA := decimal.NewFromBigInt(new(big.Int).SetUint64(out.AmountOf(p.AssetA)), 0)
	if p.AssetA.IsADA() && p.ProtocolFees != nil {
		reserveA = reserveA.Sub(decimal.NewFromBigInt(p.ProtocolFees, 0))
	}
	reserveB := decimal.NewFromBigInt(new(big.Int).SetUint64(out.AmountOf(p.AssetB)), 0)
	return reserveA, reserveB
}

// Price returns the price of asset B in units of asset A.
func (p PoolDatum) Price(out domain.TxOutput) (decimal.Decimal, error) {
	reserveA, reserveB := p.Reserves(out)
	if !reserveB.IsPositive() || !reserveA.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: pool %x", ErrEmptyReserve, p.Identifier)
	}
	return reserveA.Div(reserveB), nil
}
