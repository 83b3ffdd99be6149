package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"sundae-strategies/internal/storage"
)

func TestKVStore_SetAndGet(t *testing.T) {
	store := NewKVStore()
	ctx := context.Background()

	if err := store.Set(ctx, "base_price", []byte("1.5")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "base_price")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "1.5" {
		t.Errorf("value mismatch: got %q, want %q", got, "1.5")
	}

	// Mutating the returned slice must not change the stored value
	got[0] = 'x'
	again, _ := store.Get(ctx, "base_price")
	if string(again) != "1.5" {
		t.Errorf("stored value was aliased: %q", again)
	}
}

func TestKVStore_NotFound(t *testing.T) {
	store := NewKVStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestKVStore_Overwrite(t *testing.T) {
	store := NewKVStore()
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("a"))
	_ = store.Set(ctx, "k", []byte("b"))

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "b" {
		t.Errorf("got %q, want %q", got, "b")
	}
}

func TestKVStore_EmptyKey(t *testing.T) {
	store := NewKVStore()

	err := store.Set(context.Background(), "", []byte("x"))
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestKVStore_List(t *testing.T) {
	store := NewKVStore()
	ctx := context.Background()

	for _, k := range []string{"base_price:bb", "managed_orders", "base_price:aa"} {
		_ = store.Set(ctx, k, []byte("1"))
	}

	keys, err := store.List(ctx, "base_price:")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"base_price:aa", "base_price:bb"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("List = %v, want %v", keys, want)
	}

	all, _ := store.List(ctx, "")
	if len(all) != 3 {
		t.Errorf("expected 3 keys, got %d", len(all))
	}
}

func TestJSONHelpers(t *testing.T) {
	store := NewKVStore()
	ctx := context.Background()

	_, found, err := storage.GetJSON[float64](ctx, store, "base_price")
	if err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}

	if err := storage.SetJSON(ctx, store, "base_price", 0.25); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	v, found, err := storage.GetJSON[float64](ctx, store, "base_price")
	if err != nil || !found {
		t.Fatalf("GetJSON failed: found=%v err=%v", found, err)
	}
	if v != 0.25 {
		t.Errorf("got %v, want 0.25", v)
	}

	_ = store.Set(ctx, "broken", []byte("{"))
	if _, _, err := storage.GetJSON[float64](ctx, store, "broken"); err == nil {
		t.Error("expected decode error")
	}
}
