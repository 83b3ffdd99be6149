package engine

import (
	"context"
	"encoding/json"

	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
)

// EventKind discriminates Event.
type EventKind string

// Event kind constants.
const (
	EventTx   EventKind = "tx"
	EventUtxo EventKind = "utxo"
	EventCall EventKind = "call"
)

// Call is an inbound request to the strategy instance.
type Call struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Event is one input to the engine.
// Only the field matching Kind is set.
type Event struct {
	Kind EventKind
	Tx   *domain.Tx
	Utxo *domain.Utxo
	Call *Call
}

// TxEvent wraps a confirmed transaction.
func TxEvent(tx domain.Tx) Event {
	return Event{Kind: EventTx, Tx: &tx}
}

// UtxoEvent wraps a newly created output.
func UtxoEvent(u domain.Utxo) Event {
	return Event{Kind: EventUtxo, Utxo: &u}
}

// CallEvent wraps an inbound call.
func CallEvent(method string, params json.RawMessage) Event {
	return Event{Kind: EventCall, Call: &Call{Method: method, Params: params}}
}

// Response is the outcome of an event. Body is set for calls only.
type Response struct {
	Body any
}

// SignerKeyResponse answers get-signer-key.
type SignerKeyResponse struct {
	Signer string `json:"signer"`
}

// OrdersResponse answers list-orders.
type OrdersResponse struct {
	Orders []custody.ManagedOrder `json:"orders"`
}

// PoolState is a pool output seen in a new transaction.
type PoolState struct {
	Slot   uint64
	Output domain.OutputReference
	Utxo   domain.TxOutput
	Pool   datum.PoolDatum
}

// Handler processes events for one strategy instance.
type Handler interface {
	Handle(ctx context.Context, rawConfig []byte, ev Event) (Response, error)
}

// NewOrderHandler is implemented by strategies that react to orders entering custody.
type NewOrderHandler[C any] interface {
	OnNewOrder(ctx context.Context, cfg C, order custody.ManagedOrder) error
}

// PoolStateHandler is implemented by strategies that react to pool updates.
type PoolStateHandler[C any] interface {
	OnNewPoolState(ctx context.Context, cfg C, state PoolState, orders []custody.ManagedOrder) error
}

// TxHandler is implemented by strategies that inspect every confirmed transaction.
type TxHandler[C any] interface {
	OnEachTx(ctx context.Context, cfg C, tx domain.Tx, orders []custody.ManagedOrder) error
}
