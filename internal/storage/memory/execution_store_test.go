package memory

import (
	"context"
	"errors"
	"testing"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/storage"
)

func TestExecutionStore_InsertAndQuery(t *testing.T) {
	store := NewExecutionStore()
	ctx := context.Background()

	records := []*domain.ExecutionRecord{
		{ExecutionID: "e2", InstanceID: "dca", TxHash: "aa", TxIndex: 0, SubmittedAt: 2000, Status: domain.ExecutionSubmitted},
		{ExecutionID: "e1", InstanceID: "dca", TxHash: "aa", TxIndex: 0, SubmittedAt: 1000, Status: domain.ExecutionFailed},
		{ExecutionID: "e3", InstanceID: "tsl", TxHash: "bb", TxIndex: 1, SubmittedAt: 1500, Status: domain.ExecutionSubmitted},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.ExecutionID, err)
		}
	}

	byRef, err := store.GetByTxRef(ctx, "aa", 0)
	if err != nil {
		t.Fatalf("GetByTxRef failed: %v", err)
	}
	if len(byRef) != 2 {
		t.Fatalf("expected 2 records, got %d", len(byRef))
	}
	if byRef[0].ExecutionID != "e1" || byRef[1].ExecutionID != "e2" {
		t.Errorf("records not ordered by submitted_at: %s, %s", byRef[0].ExecutionID, byRef[1].ExecutionID)
	}

	byInstance, err := store.GetByInstance(ctx, "tsl")
	if err != nil {
		t.Fatalf("GetByInstance failed: %v", err)
	}
	if len(byInstance) != 1 || byInstance[0].TxIndex != 1 {
		t.Errorf("unexpected GetByInstance result: %+v", byInstance)
	}

	none, _ := store.GetByTxRef(ctx, "aa", 5)
	if len(none) != 0 {
		t.Errorf("expected no records, got %d", len(none))
	}
}

func TestExecutionStore_DuplicateKey(t *testing.T) {
	store := NewExecutionStore()
	ctx := context.Background()

	r := &domain.ExecutionRecord{ExecutionID: "same", InstanceID: "x"}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, r)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestExecutionStore_InvalidInput(t *testing.T) {
	store := NewExecutionStore()

	if err := store.Insert(context.Background(), &domain.ExecutionRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
}
