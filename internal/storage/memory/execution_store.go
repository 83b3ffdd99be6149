package memory

import (
	"context"
	"sort"
	"sync"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExecutionRecord // keyed by execution_id
}

// NewExecutionStore creates a new in-memory execution log.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.ExecutionRecord),
	}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds a record. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.ExecutionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ExecutionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.ExecutionID] = &copy
	return nil
}

// GetByTxRef retrieves all attempts for an order output, ordered by submitted_at ASC.
func (s *ExecutionStore) GetByTxRef(_ context.Context, txHash string, txIndex uint64) ([]*domain.ExecutionRecord, error) {
	return s.filter(func(r *domain.ExecutionRecord) bool {
		return r.TxHash == txHash && r.TxIndex == txIndex
	}), nil
}

// GetByInstance retrieves all attempts of an instance, ordered by submitted_at ASC.
func (s *ExecutionStore) GetByInstance(_ context.Context, instanceID string) ([]*domain.ExecutionRecord, error) {
	return s.filter(func(r *domain.ExecutionRecord) bool {
		return r.InstanceID == instanceID
	}), nil
}

func (s *ExecutionStore) filter(match func(*domain.ExecutionRecord) bool) []*domain.ExecutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.data {
		if match(r) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt != result[j].SubmittedAt {
			return result[i].SubmittedAt < result[j].SubmittedAt
		}
		return result[i].ExecutionID < result[j].ExecutionID
	})
	return result
}
