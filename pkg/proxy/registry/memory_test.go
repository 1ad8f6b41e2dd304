package registry

import (
	"context"
	"testing"
)

func TestMemoryStoreHSetHGetAllPreservesInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.HSet(ctx, "group", "c", []byte("3"))
	_ = store.HSet(ctx, "group", "a", []byte("1"))
	_ = store.HSet(ctx, "group", "b", []byte("2"))

	keys, err := store.HKeys(ctx, "group")
	if err != nil {
		t.Fatalf("hkeys failed: %v", err)
	}
	want := []string{"c", "a", "b"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("expected insertion order %v, got %v", want, keys)
		}
	}
}

func TestMemoryStoreHDelRemovesFromOrderAndValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.HSet(ctx, "group", "a", []byte("1"))
	_ = store.HSet(ctx, "group", "b", []byte("2"))

	if err := store.HDel(ctx, "group", "a"); err != nil {
		t.Fatalf("hdel failed: %v", err)
	}
	length, _ := store.HLen(ctx, "group")
	if length != 1 {
		t.Fatalf("expected length 1 after delete, got %d", length)
	}
	keys, _ := store.HKeys(ctx, "group")
	if len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("expected only b to remain, got %v", keys)
	}
}

func TestMemoryStoreHMGetReturnsNilForMissingFields(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.HSet(ctx, "group", "a", []byte("1"))

	values, err := store.HMGet(ctx, "group", []string{"a", "missing"})
	if err != nil {
		t.Fatalf("hmget failed: %v", err)
	}
	if string(values[0]) != "1" {
		t.Fatalf("expected value 1 for a, got %q", values[0])
	}
	if values[1] != nil {
		t.Fatalf("expected nil for missing field, got %q", values[1])
	}
}

func TestMemoryStoreHSetReturnsDefensiveCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	original := []byte("1")
	_ = store.HSet(ctx, "group", "a", original)
	original[0] = 'x'

	values, _ := store.HMGet(ctx, "group", []string{"a"})
	if string(values[0]) != "1" {
		t.Fatalf("expected stored value unaffected by caller mutation, got %q", values[0])
	}
}
