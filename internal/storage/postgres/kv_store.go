package postgres

import (
	"context"
	"fmt"

	"sundae-strategies/internal/storage"
)

// KVStore implements storage.KVStore on the kv_entries table.
// Keys are namespaced by strategy instance.
type KVStore struct {
	pool       *Pool
	instanceID string
}

// NewKVStore creates a KVStore scoped to instanceID.
func NewKVStore(pool *Pool, instanceID string) *KVStore {
	return &KVStore{pool: pool, instanceID: instanceID}
}

// Compile-time interface check.
var _ storage.KVStore = (*KVStore)(nil)

// Get returns the value stored under key. Returns ErrNotFound if absent.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM kv_entries
		WHERE instance_id = $1 AND key = $2
	`

	var value []byte
	err := s.pool.QueryRow(ctx, query, s.instanceID, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get kv entry: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set upserts value under key.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}
	if value == nil {
		value = []byte{}
	}

	query := `
		INSERT INTO kv_entries (instance_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (instance_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, s.instanceID, key, value); err != nil {
		return fmt.Errorf("set kv entry: %w", err)
	}
	return nil
}

// List returns the keys starting with prefix, sorted ascending.
func (s *KVStore) List(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT key
		FROM kv_entries
		WHERE instance_id = $1 AND starts_with(key, $2)
		ORDER BY key ASC
	`

	rows, err := s.pool.Query(ctx, query, s.instanceID, prefix)
	if err != nil {
		return nil, fmt.Errorf("list kv entries: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan kv key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv entries: %w", err)
	}
	return keys, nil
}
