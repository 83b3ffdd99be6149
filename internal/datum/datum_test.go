package datum

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/plutus"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestStrategyExecution_KnownEncoding(t *testing.T) {
	receive, err := domain.ParseAssetID("99b071ce8580d6a3a11b4902145adb8bfd0d2a03935af8cf66403e15.534245525259")
	require.NoError(t, err)

	exec := StrategyExecution{
		TxRef: domain.OutputReference{
			TransactionID: mustHex(t, "da432ef16b7aa9b3972bdd42f86e6605c14444e75678f4e6fd75baa01168086f"),
			OutputIndex:   0,
		},
		ValidityRange: InclusiveRange(1752270497000, 1752272897000),
		Details:       SwapOrder(Value(domain.AssetID{}, 10000000), Value(receive, 1)),
	}

	want := "d8799fd8799fd8799f5820da432ef16b7aa9b3972bdd42f86e6605c14444e75678f4e6fd75baa01168086fff00ffd8799fd8799fd87a9f1b00000197fb75e4e8ffd87a80ffd8799fd87a9f1b00000197fb9a83e8ffd87a80ffffd87a9f9f40401a00989680ff9f581c99b071ce8580d6a3a11b4902145adb8bfd0d2a03935af8cf66403e154653424552525901ffff40ff"
	assert.Equal(t, want, hex.EncodeToString(Serialize(exec)))

	back, ok := TryParse[StrategyExecution](mustHex(t, want))
	require.True(t, ok)
	assert.Equal(t, uint64(1752270497000), back.ValidityRange.Lower.Millis)
	assert.True(t, back.ValidityRange.Upper.Inclusive)
	assert.Equal(t, OrderSwap, back.Details.Kind)
	assert.Equal(t, uint64(10000000), back.Details.Offer.Amount)
	assert.Equal(t, want, hex.EncodeToString(Serialize(back)))
}

func sampleOrder(signer []byte) OrderDatum {
	return OrderDatum{
		PoolIdent:      mustHexNoT("0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c"),
		Owner:          SignedBy(mustHexNoT("aabbccddeeff00112233445566778899aabbccddeeff001122334455")),
		MaxProtocolFee: big.NewInt(1_500_000),
		Destination:    Destination{Kind: DestinationSelf},
		Details:        StrategyOrder(signer),
		Extra:          []byte{},
	}
}

func mustHexNoT(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestOrderDatum_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		datum OrderDatum
	}{
		{"strategy order", sampleOrder([]byte{1, 2, 3})},
		{
			name: "swap with fixed destination and no pool",
			datum: OrderDatum{
				Owner: MultisigScript{
					Kind:     MultisigAtLeast,
					Required: 1,
					Scripts: []MultisigScript{
						SignedBy([]byte{0x01}),
						{Kind: MultisigAfter, Time: big.NewInt(1700000000000)},
					},
				},
				MaxProtocolFee: big.NewInt(0),
				Destination: Destination{
					Kind:    DestinationFixed,
					Address: plutus.NewConstr(0, plutus.NewConstr(0, plutus.Bytes{0x02})),
					Datum:   plutus.NewConstr(0),
				},
				Details: SwapOrder(SingletonValue{Amount: 5}, SingletonValue{PolicyID: []byte{0xaa}, AssetName: []byte{0xbb}, Amount: 1}),
				Extra:   make([]byte, 100),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := Serialize(tt.datum)

			back, ok := TryParse[OrderDatum](enc)
			require.True(t, ok)
			assert.Equal(t, hex.EncodeToString(enc), hex.EncodeToString(Serialize(back)))
			assert.Equal(t, tt.datum.PoolIdent == nil, back.PoolIdent == nil)
			assert.Equal(t, tt.datum.Details.Kind, back.Details.Kind)
		})
	}
}

func TestTryParse_Mismatch(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"not cbor", []byte{0xff, 0x00}},
		{"integer", plutus.MustMarshal(plutus.NewInt(7))},
		{"wrong arity", plutus.MustMarshal(plutus.NewConstr(0, plutus.Bytes{}))},
		{"pool datum", Serialize(samplePool())},
		{"execution", Serialize(StrategyExecution{ValidityRange: InclusiveRange(1, 2), Details: StrategyOrder(nil)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := TryParse[OrderDatum](tt.input)
			assert.False(t, ok)

			_, err := Decode[OrderDatum](tt.input)
			assert.ErrorIs(t, err, ErrMismatch)
		})
	}
}

func TestOrderDatum_AuthorizedFor(t *testing.T) {
	key := []byte{9, 9, 9}
	order := sampleOrder(key)

	assert.True(t, order.AuthorizedFor(key))
	assert.False(t, order.AuthorizedFor([]byte{1}))

	order.Details = SwapOrder(SingletonValue{}, SingletonValue{})
	assert.False(t, order.AuthorizedFor(key))
}

func TestOrderDatum_JSON(t *testing.T) {
	order := sampleOrder([]byte{4, 5})

	b, err := json.Marshal(order)
	require.NoError(t, err)

	var s string
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, hex.EncodeToString(Serialize(order)), s)

	var back OrderDatum
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.AuthorizedFor([]byte{4, 5}))

	assert.Error(t, json.Unmarshal([]byte(`"00"`), &back))
}

func TestSignedStrategyExecution_RoundTrip(t *testing.T) {
	signed := SignedStrategyExecution{
		Execution: StrategyExecution{
			TxRef:         domain.OutputReference{TransactionID: []byte{0x01}, OutputIndex: 2},
			ValidityRange: Interval{Lower: IntervalBound{Type: BoundNegativeInfinity}, Upper: IntervalBound{Type: BoundPositiveInfinity}},
			Details:       SwapOrder(SingletonValue{Amount: 1}, SingletonValue{Amount: 2}),
		},
		Signature: make([]byte, 64),
	}

	back, ok := TryParse[SignedStrategyExecution](Serialize(signed))
	require.True(t, ok)
	assert.Len(t, back.Signature, 64)
	assert.Equal(t, BoundNegativeInfinity, back.Execution.ValidityRange.Lower.Type)
	assert.Equal(t, BoundPositiveInfinity, back.Execution.ValidityRange.Upper.Type)
	assert.False(t, back.Execution.ValidityRange.Lower.Inclusive)

	signed.Signature = nil
	back, ok = TryParse[SignedStrategyExecution](Serialize(signed))
	require.True(t, ok)
	assert.Nil(t, back.Signature)
}

func samplePool() PoolDatum {
	return PoolDatum{
		Identifier:           mustHexNoT("ba228444515fbefd2c8725338e49589f206c7f18a33e002b157aac3c"),
		AssetA:               domain.AssetID{},
		AssetB:               domain.AssetID{PolicyID: []byte{0xaa}, Name: []byte{0x01}},
		CirculatingLP:        big.NewInt(1000),
		BidFeesPer10Thousand: big.NewInt(30),
		AskFeesPer10Thousand: big.NewInt(30),
		MarketOpen:           big.NewInt(0),
		ProtocolFees:         big.NewInt(3_000_000),
	}
}

func TestPoolDatum_RoundTrip(t *testing.T) {
	pool := samplePool()
	fm := SignedBy([]byte{0x07})
	pool.FeeManager = &fm

	back, ok := TryParse[PoolDatum](Serialize(pool))
	require.True(t, ok)
	require.NotNil(t, back.FeeManager)
	assert.Equal(t, []byte{0x07}, back.FeeManager.KeyHash)
	assert.True(t, back.AssetA.IsADA())
	assert.Equal(t, 0, back.ProtocolFees.Cmp(big.NewInt(3_000_000)))

	_, ok = TryParse[PoolDatum](Serialize(sampleOrder(nil)))
	assert.False(t, ok)
}

func TestPoolDatum_Price(t *testing.T) {
	pool := samplePool()
	out := domain.TxOutput{
		Coin: 1_003_000_000,
		Assets: []domain.Multiasset{
			{PolicyID: []byte{0xaa}, Assets: []domain.Asset{{Name: []byte{0x01}, Amount: 500_000_000}}},
		},
	}

	price, err := pool.Price(out)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(2)), price.String())

	tokenPool := samplePool()
	tokenPool.AssetA = domain.AssetID{PolicyID: []byte{0xaa}, Name: []byte{0x01}}
	tokenPool.AssetB = domain.AssetID{PolicyID: []byte{0xbb}, Name: []byte{0x02}}
	out.Assets = append(out.Assets, domain.Multiasset{
		PolicyID: []byte{0xbb},
		Assets:   []domain.Asset{{Name: []byte{0x02}, Amount: 1_000_000_000}},
	})
	price, err = tokenPool.Price(out)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.5")), price.String())

	_, err = pool.Price(domain.TxOutput{Coin: 10})
	assert.ErrorIs(t, err, ErrEmptyReserve)
}
