package core

import (
	"sync"

	"github.com/keshava/maro/pkg/proxy/types"
)

// MessageCache holds messages received out of order, keyed by
// session-id, until a matching ReceiveByID drains them. Unbounded in
// the hot path, per spec.md §3; draining is the only eviction.
type MessageCache struct {
	mu      sync.Mutex
	buckets map[string][]types.Message
}

// NewMessageCache returns an empty cache.
func NewMessageCache() *MessageCache {
	return &MessageCache{buckets: make(map[string][]types.Message)}
}

// Put appends message to its session-id bucket, preserving arrival
// order within the bucket (spec.md O2).
func (c *MessageCache) Put(message types.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[message.SessionID] = append(c.buckets[message.SessionID], message)
}

// Drain removes and returns every cached message for any of ids,
// implementing the first half of spec.md §4.2's receive_by_id
// algorithm. The returned pending slice lists the ids that had no
// cached entry and still need a live driver read.
func (c *MessageCache) Drain(ids []string) (received []types.Message, pending []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if msgs, ok := c.buckets[id]; ok {
			received = append(received, msgs...)
			delete(c.buckets, id)
		} else {
			pending = append(pending, id)
		}
	}
	return received, pending
}

// rejoinEntry is a single (destination, message) pair withheld for a
// peer presently off-roster.
type rejoinEntry struct {
	destination string
	message     types.Message
}

// RejoinCache is the bounded FIFO of spec.md §3: capacity is fixed at
// construction (default 1024, per spec.md), oldest evicted on overflow
// (I4).
type RejoinCache struct {
	mu       sync.Mutex
	capacity int
	entries  []rejoinEntry
}

// NewRejoinCache builds a cache with the given capacity.
func NewRejoinCache(capacity int) *RejoinCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RejoinCache{capacity: capacity}
}

// Push enqueues message for destination, evicting the oldest entry if
// the cache is at capacity.
func (c *RejoinCache) Push(destination string, message types.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.capacity {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, rejoinEntry{destination: destination, message: message})
}

// DrainFor removes and returns, in FIFO order, every entry targeting
// destination.
func (c *RejoinCache) DrainFor(destination string) []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.Message
	remaining := c.entries[:0:0]
	for _, e := range c.entries {
		if e.destination == destination {
			out = append(out, e.message)
		} else {
			remaining = append(remaining, e)
		}
	}
	c.entries = remaining
	return out
}

// Len reports the current size, used by tests asserting I4.
func (c *RejoinCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
