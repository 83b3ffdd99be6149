// Package custody keeps the index of strategy orders an instance is authorized to execute.
package custody

import (
	"context"
	"fmt"
	"log/slog"

	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/storage"
)

// IndexKey is the KV key the custody index is persisted under.
const IndexKey = "managed_orders"

// ManagedOrder is an order output under custody.
// Created once per output reference and dropped when spent.
type ManagedOrder struct {
	Slot   uint64                 `json:"slot"`
	Output domain.OutputReference `json:"output"`
	Utxo   domain.TxOutput        `json:"utxo"`
	Order  datum.OrderDatum       `json:"order"`
}

// Tracker maintains the custody index in a KV store.
// It is not safe for concurrent use; the engine serializes events.
type Tracker struct {
	kv  storage.KVStore
	log *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.log = l
	}
}

// NewTracker creates a tracker persisting to kv.
func NewTracker(kv storage.KVStore, opts ...Option) *Tracker {
	t := &Tracker{kv: kv, log: logger.L()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// List returns the current custody index. A missing index is empty.
func (t *Tracker) List(ctx context.Context) ([]ManagedOrder, error) {
	orders, _, err := storage.GetJSON[[]ManagedOrder](ctx, t.kv, IndexKey)
	if err != nil {
		return nil, fmt.Errorf("load custody index: %w", err)
	}
	if orders == nil {
		orders = []ManagedOrder{}
	}
	return orders, nil
}

// OnNewOutput takes the output into custody if its datum is a strategy order
// signed over to signerKey. It returns nil when the output is not ours or is
// already tracked, along with the size of the index.
func (t *Tracker) OnNewOutput(
	ctx context.Context,
	slot uint64,
	ref domain.OutputReference,
	utxo domain.TxOutput,
	order *datum.OrderDatum,
	signerKey []byte,
) (*ManagedOrder, int, error) {
	if order == nil || !order.AuthorizedFor(signerKey) {
		return nil, 0, nil
	}

	orders, err := t.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, o := range orders {
		if o.Output.Equal(ref) {
			t.log.Debug("order already tracked", "output", ref.String())
			return nil, len(orders), nil
		}
	}

	managed := ManagedOrder{
		Slot:   slot,
		Output: ref,
		Utxo:   utxo,
		Order:  *order,
	}
	orders = append(orders, managed)
	if err := storage.SetJSON(ctx, t.kv, IndexKey, orders); err != nil {
		return nil, 0, fmt.Errorf("save custody index: %w", err)
	}

	t.log.Info("order taken into custody", "output", ref.String(), "slot", slot, "tracked", len(orders))
	return &managed, len(orders), nil
}

// OnConfirmedTransaction drops every tracked order whose output is among spent
// and returns the remaining index. The index is written back even when
// nothing changed.
func (t *Tracker) OnConfirmedTransaction(ctx context.Context, spent []domain.OutputReference) ([]ManagedOrder, int, error) {
	orders, err := t.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	remaining := make([]ManagedOrder, 0, len(orders))
	for _, o := range orders {
		if isSpent(o.Output, spent) {
			t.log.Info("order spent", "output", o.Output.String())
			continue
		}
		remaining = append(remaining, o)
	}

	if err := storage.SetJSON(ctx, t.kv, IndexKey, remaining); err != nil {
		return nil, 0, fmt.Errorf("save custody index: %w", err)
	}
	return remaining, len(orders) - len(remaining), nil
}

func isSpent(ref domain.OutputReference, spent []domain.OutputReference) bool {
	for _, s := range spent {
		if s.Equal(ref) {
			return true
		}
	}
	return false
}
