package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/observability"
	"sundae-strategies/internal/signing"
	"sundae-strategies/internal/storage/memory"
)

type testConfig struct {
	Threshold int `json:"threshold"`
}

func (c *testConfig) Validate() error {
	if c.Threshold < 0 {
		return errors.New("threshold: must not be negative")
	}
	return nil
}

// recordingStrategy implements every capability and records calls.
type recordingStrategy struct {
	calls  []string
	cfgs   []testConfig
	orders [][]custody.ManagedOrder
	err    error
}

func (s *recordingStrategy) OnNewOrder(_ context.Context, cfg testConfig, o custody.ManagedOrder) error {
	s.calls = append(s.calls, "order:"+o.Output.String())
	s.cfgs = append(s.cfgs, cfg)
	return s.err
}

func (s *recordingStrategy) OnNewPoolState(_ context.Context, cfg testConfig, st PoolState, orders []custody.ManagedOrder) error {
	s.calls = append(s.calls, "pool:"+hex.EncodeToString(st.Pool.Identifier))
	s.orders = append(s.orders, orders)
	return s.err
}

func (s *recordingStrategy) OnEachTx(_ context.Context, cfg testConfig, tx domain.Tx, orders []custody.ManagedOrder) error {
	s.calls = append(s.calls, "tx:"+tx.Hash.String())
	s.orders = append(s.orders, orders)
	return s.err
}

// txOnly implements TxHandler only.
type txOnly struct {
	seen int
}

func (s *txOnly) OnEachTx(context.Context, testConfig, domain.Tx, []custody.ManagedOrder) error {
	s.seen++
	return nil
}

type fixture struct {
	keys    *signing.Keyring
	key     []byte
	kv      *memory.KVStore
	tracker *custody.Tracker
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	keys, err := signing.NewEphemeral()
	require.NoError(t, err)
	key, err := keys.PublicKey(signing.DefaultKey)
	require.NoError(t, err)
	kv := memory.NewKVStore()
	return fixture{keys: keys, key: key, kv: kv, tracker: custody.NewTracker(kv)}
}

func orderDatum(signer []byte) []byte {
	return datum.Serialize(datum.OrderDatum{
		Owner:          datum.SignedBy([]byte{0xaa}),
		MaxProtocolFee: big.NewInt(1_000_000),
		Destination:    datum.Destination{Kind: datum.DestinationSelf},
		Details:        datum.StrategyOrder(signer),
		Extra:          []byte{},
	})
}

func poolDatum(ident []byte) []byte {
	return datum.Serialize(datum.PoolDatum{
		Identifier:           ident,
		AssetB:               domain.AssetID{PolicyID: []byte{0x01}, Name: []byte{0x02}},
		CirculatingLP:        big.NewInt(1000),
		BidFeesPer10Thousand: big.NewInt(30),
		AskFeesPer10Thousand: big.NewInt(30),
		MarketOpen:           big.NewInt(0),
		ProtocolFees:         big.NewInt(2_000_000),
	})
}

func utxo(slot uint64, hash byte, idx uint64, d []byte) Event {
	return UtxoEvent(domain.Utxo{
		Slot:   slot,
		Ref:    domain.OutputReference{TransactionID: []byte{hash}, OutputIndex: idx},
		Output: domain.TxOutput{Coin: 5_000_000, Datum: d},
	})
}

func TestEngine_DispatchOrder(t *testing.T) {
	f := newFixture(t)
	s := &recordingStrategy{}
	e := New[testConfig](s, f.tracker, f.keys)
	ctx := context.Background()
	cfg := []byte(`{"threshold": 3}`)

	_, err := e.Handle(ctx, cfg, utxo(10, 0x01, 0, poolDatum([]byte{0xee})))
	require.NoError(t, err)
	_, err = e.Handle(ctx, cfg, utxo(10, 0x01, 1, orderDatum(f.key)))
	require.NoError(t, err)
	_, err = e.Handle(ctx, cfg, utxo(10, 0x01, 2, orderDatum([]byte{0x00})))
	require.NoError(t, err)
	_, err = e.Handle(ctx, cfg, TxEvent(domain.Tx{Hash: []byte{0x01}, Slot: 10}))
	require.NoError(t, err)

	assert.Equal(t, []string{"pool:ee", "order:01#1", "tx:01"}, s.calls)
	assert.Equal(t, 3, s.cfgs[0].Threshold)
	require.Len(t, s.orders, 2)
	assert.Empty(t, s.orders[0])
	assert.Len(t, s.orders[1], 1)
}

func TestEngine_SpentOrdersRemovedBeforeTxHook(t *testing.T) {
	f := newFixture(t)
	s := &recordingStrategy{}
	e := New[testConfig](s, f.tracker, f.keys)
	ctx := context.Background()

	_, err := e.Handle(ctx, nil, utxo(10, 0x01, 0, orderDatum(f.key)))
	require.NoError(t, err)
	_, err = e.Handle(ctx, nil, utxo(10, 0x01, 1, orderDatum(f.key)))
	require.NoError(t, err)

	spend := domain.Tx{
		Hash:   []byte{0x02},
		Slot:   20,
		Inputs: []domain.OutputReference{{TransactionID: []byte{0x01}, OutputIndex: 0}},
	}
	_, err = e.Handle(ctx, nil, TxEvent(spend))
	require.NoError(t, err)

	require.Len(t, s.orders, 1)
	require.Len(t, s.orders[0], 1)
	assert.Equal(t, uint64(1), s.orders[0][0].Output.OutputIndex)
}

func TestEngine_MissingCapabilitiesAreNoops(t *testing.T) {
	f := newFixture(t)
	s := &txOnly{}
	e := New[testConfig](s, f.tracker, f.keys)
	ctx := context.Background()

	_, err := e.Handle(ctx, nil, utxo(1, 0x01, 0, poolDatum([]byte{0x01})))
	require.NoError(t, err)
	_, err = e.Handle(ctx, nil, utxo(1, 0x01, 1, orderDatum(f.key)))
	require.NoError(t, err)
	_, err = e.Handle(ctx, nil, TxEvent(domain.Tx{Hash: []byte{0x01}, Slot: 1}))
	require.NoError(t, err)

	assert.Equal(t, 1, s.seen)
	orders, err := f.tracker.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestEngine_UndecodableDatumIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	s := &recordingStrategy{}
	e := New[testConfig](s, f.tracker, f.keys)

	_, err := e.Handle(context.Background(), nil, utxo(1, 0x01, 0, []byte{0xd8, 0x79, 0x9f}))
	require.NoError(t, err)
	_, err = e.Handle(context.Background(), nil, utxo(1, 0x01, 1, nil))
	require.NoError(t, err)
	assert.Empty(t, s.calls)
}

func TestEngine_InvalidConfig(t *testing.T) {
	f := newFixture(t)
	e := New[testConfig](&recordingStrategy{}, f.tracker, f.keys)
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"not json", `{`, ""},
		{"wrong type", `{"threshold": "x"}`, "threshold"},
		{"validation", `{"threshold": -1}`, "threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Handle(ctx, []byte(tt.raw), TxEvent(domain.Tx{}))
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEngine_HookErrorAborts(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("relay down")
	e := New[testConfig](&recordingStrategy{err: boom}, f.tracker, f.keys)

	_, err := e.Handle(context.Background(), nil, TxEvent(domain.Tx{Hash: []byte{0x01}}))
	require.ErrorIs(t, err, boom)
}

func TestEngine_Calls(t *testing.T) {
	f := newFixture(t)
	e := New[testConfig](&recordingStrategy{}, f.tracker, f.keys)
	ctx := context.Background()

	resp, err := e.Handle(ctx, nil, CallEvent(MethodGetSignerKey, nil))
	require.NoError(t, err)
	assert.Equal(t, SignerKeyResponse{Signer: hex.EncodeToString(f.key)}, resp.Body)

	_, err = e.Handle(ctx, nil, utxo(5, 0x03, 0, orderDatum(f.key)))
	require.NoError(t, err)

	resp, err = e.Handle(ctx, nil, CallEvent(MethodListOrders, nil))
	require.NoError(t, err)
	orders, ok := resp.Body.(OrdersResponse)
	require.True(t, ok)
	require.Len(t, orders.Orders, 1)
	assert.Equal(t, uint64(5), orders.Orders[0].Slot)

	_, err = e.Handle(ctx, nil, CallEvent("rebalance", nil))
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestEngine_MissingKey(t *testing.T) {
	f := newFixture(t)
	empty := signing.NewKeyring(nil)
	e := New[testConfig](&recordingStrategy{}, f.tracker, empty)

	_, err := e.Handle(context.Background(), nil, utxo(1, 0x01, 0, orderDatum(f.key)))
	require.ErrorIs(t, err, signing.ErrKeyNotFound)
}

func TestEngine_UnknownKindIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	s := &recordingStrategy{}
	e := New[testConfig](s, f.tracker, f.keys)

	resp, err := e.Handle(context.Background(), nil, Event{Kind: "rollback"})
	require.NoError(t, err)
	assert.Nil(t, resp.Body)
	assert.Empty(t, s.calls)
}

func TestEngine_Metrics(t *testing.T) {
	f := newFixture(t)
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	e := New[testConfig](&txOnly{}, f.tracker, f.keys, WithMetrics(m))
	ctx := context.Background()

	_, err := e.Handle(ctx, nil, utxo(7, 0x01, 0, orderDatum(f.key)))
	require.NoError(t, err)
	_, err = e.Handle(ctx, nil, TxEvent(domain.Tx{Hash: []byte{0x02}, Slot: 9}))
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsHandled.WithLabelValues("utxo")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OrdersTracked))
	assert.Equal(t, float64(9), testutil.ToFloat64(m.HighestSlotSeen))
}

func TestEngine_TrackedGaugeCountsPersistedIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// an index left by a previous run of the instance
	order, err := datum.Decode[datum.OrderDatum](orderDatum(f.key))
	require.NoError(t, err)
	for i := uint64(0); i < 2; i++ {
		_, _, err := f.tracker.OnNewOutput(ctx, 3, domain.OutputReference{TransactionID: []byte{0x09}, OutputIndex: i}, domain.TxOutput{}, &order, f.key)
		require.NoError(t, err)
	}

	m := observability.NewMetrics("restart", prometheus.NewRegistry())
	e := New[testConfig](&txOnly{}, f.tracker, f.keys, WithMetrics(m))

	_, err = e.Handle(ctx, nil, utxo(7, 0x01, 0, orderDatum(f.key)))
	require.NoError(t, err)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.OrdersTracked))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OrdersAdded))
}
