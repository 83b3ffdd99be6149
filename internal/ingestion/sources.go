package ingestion

import (
	"context"
	"errors"

	"sundae-strategies/internal/domain"
)

// ErrSourceClosed is returned by Next after Close.
var ErrSourceClosed = errors.New("source closed")

// TxSource delivers confirmed transactions in chain order.
type TxSource interface {
	// Next blocks until the next transaction is available.
	// Returns io.EOF when a finite source is exhausted.
	Next(ctx context.Context) (*domain.Tx, error)

	// Close releases the source.
	Close() error
}
