// Package registry implements the key-value registry contract from
// spec.md §6: a hash-map store the Rendezvous and RejoinController
// components use to publish and discover peer addresses. It is an
// external collaborator in spec.md's own words; this package exists so
// the module is runnable end-to-end without a separately-maintained
// client.
package registry

import "context"

// Store is the registry contract: hash-map set/delete/get-multiple/
// length/keys/get-all, exactly the six primitives named in spec.md §6.
type Store interface {
	// HSet writes value under field in the hash-map named key.
	HSet(ctx context.Context, key, field string, value []byte) error
	// HDel removes field from the hash-map named key.
	HDel(ctx context.Context, key, field string) error
	// HGetAll returns every field/value pair in the hash-map named key.
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
	// HMGet returns the values for the given fields, in the same order.
	// A missing field yields a nil slice at that position.
	HMGet(ctx context.Context, key string, fields []string) ([][]byte, error)
	// HLen returns the number of fields in the hash-map named key.
	HLen(ctx context.Context, key string) (int, error)
	// HKeys returns the field names of the hash-map named key, in the
	// store's own iteration order. spec.md §4.1 step 4 relies on this
	// order for tie-breaking when more peers than expected are present.
	HKeys(ctx context.Context, key string) ([]string, error)
}
