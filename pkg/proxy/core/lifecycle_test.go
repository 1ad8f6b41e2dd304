package core

import (
	"context"
	"testing"

	"github.com/keshava/maro/pkg/proxy/definition"
	"github.com/keshava/maro/pkg/proxy/driver"
	"github.com/keshava/maro/pkg/proxy/registry"
)

func TestLifecycleHooksDeregisterIsIdempotent(t *testing.T) {
	store := registry.NewMemoryStore()
	ctx := context.Background()
	log := definition.NewNoopLogger()
	d := driver.NewLoopbackDriver("self")
	defer d.Close()

	_ = store.HSet(ctx, "group:worker", "self", []byte(`"addr"`))
	hooks := NewLifecycleHooks(store, d, log, "self", "group:worker", "job-1", false, nil)

	if err := hooks.Deregister(ctx); err != nil {
		t.Fatalf("first deregister failed: %v", err)
	}
	remaining, _ := store.HGetAll(ctx, "group:worker")
	if len(remaining) != 0 {
		t.Fatalf("expected self removed from registry, got %v", remaining)
	}
	if !hooks.Deregistered() {
		t.Fatal("expected Deregistered to report true")
	}

	// Second call is a no-op, must not error or panic.
	if err := hooks.Deregister(ctx); err != nil {
		t.Fatalf("second deregister should be a no-op, got %v", err)
	}
}

func TestLifecycleHooksDeregisterRemovesContainerMappingWhenRejoinEnabled(t *testing.T) {
	store := registry.NewMemoryStore()
	ctx := context.Background()
	log := definition.NewNoopLogger()
	d := driver.NewLoopbackDriver("self")
	defer d.Close()

	_ = store.HSet(ctx, "group:worker", "self", []byte(`"addr"`))
	_ = store.HSet(ctx, "job-1:component_name_to_container_name", "self", []byte(`"container-1"`))
	_ = store.HSet(ctx, "component-container-mapping", "self", []byte(`"container-1"`))

	hooks := NewLifecycleHooks(store, d, log, "self", "group:worker", "job-1", true, nil)
	if err := hooks.Deregister(ctx); err != nil {
		t.Fatalf("deregister failed: %v", err)
	}

	mapping, _ := store.HGetAll(ctx, "job-1:component_name_to_container_name")
	if len(mapping) != 0 {
		t.Fatalf("expected container mapping removed, got %v", mapping)
	}
	sideMapping, _ := store.HGetAll(ctx, "component-container-mapping")
	if len(sideMapping) != 0 {
		t.Fatalf("expected side mapping removed, got %v", sideMapping)
	}
}
