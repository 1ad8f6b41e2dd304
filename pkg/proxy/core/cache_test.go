package core

import (
	"testing"

	"github.com/keshava/maro/pkg/proxy/types"
)

func TestMessageCacheDrainOnlyMatchingIDs(t *testing.T) {
	cache := NewMessageCache()
	cache.Put(types.Message{SessionID: "a", Payload: []byte("1")})
	cache.Put(types.Message{SessionID: "b", Payload: []byte("2")})
	cache.Put(types.Message{SessionID: "a", Payload: []byte("3")})

	received, pending := cache.Drain([]string{"a", "c"})
	if len(pending) != 1 || pending[0] != "c" {
		t.Fatalf("expected c pending, got %v", pending)
	}
	if len(received) != 2 {
		t.Fatalf("expected 2 messages for session a, got %d", len(received))
	}
	if string(received[0].Payload) != "1" || string(received[1].Payload) != "3" {
		t.Fatalf("arrival order not preserved: %+v", received)
	}

	// Draining again yields nothing: a was consumed, b was never asked for.
	received, pending = cache.Drain([]string{"a"})
	if len(received) != 0 || len(pending) != 1 {
		t.Fatalf("expected empty drain after consumption, got %v / %v", received, pending)
	}
}

func TestRejoinCacheFIFOEviction(t *testing.T) {
	cache := NewRejoinCache(2)
	cache.Push("peer-a", types.Message{Payload: []byte("1")})
	cache.Push("peer-a", types.Message{Payload: []byte("2")})
	cache.Push("peer-a", types.Message{Payload: []byte("3")})

	if cache.Len() != 2 {
		t.Fatalf("expected capacity-bounded length 2, got %d", cache.Len())
	}

	out := cache.DrainFor("peer-a")
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(out))
	}
	if string(out[0].Payload) != "2" || string(out[1].Payload) != "3" {
		t.Fatalf("expected oldest entry evicted, FIFO order preserved, got %+v", out)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after drain, got %d", cache.Len())
	}
}

func TestRejoinCacheDrainForIsolatesDestination(t *testing.T) {
	cache := NewRejoinCache(10)
	cache.Push("peer-a", types.Message{Payload: []byte("a1")})
	cache.Push("peer-b", types.Message{Payload: []byte("b1")})
	cache.Push("peer-a", types.Message{Payload: []byte("a2")})

	out := cache.DrainFor("peer-a")
	if len(out) != 2 {
		t.Fatalf("expected 2 entries for peer-a, got %d", len(out))
	}
	if cache.Len() != 1 {
		t.Fatalf("expected peer-b entry to survive, got len %d", cache.Len())
	}
}

func TestNewRejoinCacheDefaultsCapacity(t *testing.T) {
	cache := NewRejoinCache(0)
	for i := 0; i < 1025; i++ {
		cache.Push("x", types.Message{})
	}
	if cache.Len() != 1024 {
		t.Fatalf("expected default capacity 1024, got %d", cache.Len())
	}
}
