package storage

import (
	"context"

	"sundae-strategies/internal/domain"
)

// KVStore is the per-instance key-value capability strategies persist state in.
type KVStore interface {
	// Get returns the value stored under key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// List returns the keys starting with prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ExecutionStore is the append-only log of submitted executions.
type ExecutionStore interface {
	// Insert adds a record. Returns ErrDuplicateKey if execution_id exists.
	Insert(ctx context.Context, r *domain.ExecutionRecord) error

	// GetByTxRef retrieves all attempts for an order output, ordered by submitted_at ASC.
	GetByTxRef(ctx context.Context, txHash string, txIndex uint64) ([]*domain.ExecutionRecord, error)

	// GetByInstance retrieves all attempts of an instance, ordered by submitted_at ASC.
	GetByInstance(ctx context.Context, instanceID string) ([]*domain.ExecutionRecord, error)
}
