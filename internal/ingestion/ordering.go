package ingestion

import (
	"bytes"
	"errors"
	"sort"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/engine"
)

// ErrInvalidOrdering is returned when transactions arrive out of slot order.
var ErrInvalidOrdering = errors.New("transactions are not in slot order")

// Expand turns a confirmed transaction into the events the engine sees:
// one new-output event per output, in output order, then the tx event.
func Expand(tx domain.Tx) []engine.Event {
	events := make([]engine.Event, 0, len(tx.Outputs)+1)
	for i, out := range tx.Outputs {
		events = append(events, engine.UtxoEvent(domain.Utxo{
			Slot:   tx.Slot,
			Ref:    tx.OutputRef(i),
			Output: out,
		}))
	}
	return append(events, engine.TxEvent(tx))
}

// SortTxs orders transactions by (slot ASC, hash ASC).
func SortTxs(txs []*domain.Tx) {
	sort.SliceStable(txs, func(i, j int) bool {
		return compareTxs(txs[i], txs[j]) < 0
	})
}

// ValidateTxOrdering checks that slots never decrease.
// Returns ErrInvalidOrdering if not.
func ValidateTxOrdering(txs []*domain.Tx) error {
	for i := 1; i < len(txs); i++ {
		if txs[i].Slot < txs[i-1].Slot {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareTxs returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (slot ASC, hash ASC)
func compareTxs(a, b *domain.Tx) int {
	if a.Slot != b.Slot {
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.Hash, b.Hash)
}
