package types

import "testing"

func TestResolvedMinimalPeersAppliesScalarFraction(t *testing.T) {
	cfg := NewConfiguration("group", "worker", map[string]int{"worker": 10})
	min := cfg.ResolvedMinimalPeers()
	if min["worker"] != 10 {
		t.Fatalf("expected floor(10*1.0)=10 by default fraction 1.0, got %d", min["worker"])
	}
}

func TestResolvedMinimalPeersFloorsAndClampsToOne(t *testing.T) {
	cfg := NewConfiguration("group", "worker", map[string]int{"worker": 3}, WithRejoin(MinimalPeersByType{"worker": 0.1}, 0, false, 0))
	min := cfg.ResolvedMinimalPeers()
	if min["worker"] != 1 {
		t.Fatalf("expected clamp to minimum 1 (floor(3*0.1)=0), got %d", min["worker"])
	}
}

func TestResolvedMinimalPeersPerTypeOverridesScalar(t *testing.T) {
	cfg := NewConfiguration("group", "worker", map[string]int{"a": 10, "b": 10}, WithRejoin(MinimalPeersByType{"a": 0.5}, 0, false, 0))
	min := cfg.ResolvedMinimalPeers()
	if min["a"] != 5 {
		t.Fatalf("expected per-type override floor(10*0.5)=5, got %d", min["a"])
	}
	if min["b"] != 10 {
		t.Fatalf("expected default fraction 1.0 for type without override, got %d", min["b"])
	}
}

func TestWithDriverSetsTypeAndParams(t *testing.T) {
	params := map[string]interface{}{"k": "v"}
	cfg := NewConfiguration("group", "worker", nil, WithDriver("relt", params))
	if cfg.DriverType != "relt" {
		t.Fatalf("expected driver type relt, got %q", cfg.DriverType)
	}
	if cfg.DriverParams["k"] != "v" {
		t.Fatalf("expected driver params propagated, got %v", cfg.DriverParams)
	}
}

func TestNewConfigurationDefaultsToLoopback(t *testing.T) {
	cfg := NewConfiguration("group", "worker", nil)
	if cfg.DriverType != "loopback" {
		t.Fatalf("expected default driver type loopback, got %q", cfg.DriverType)
	}
	if cfg.EnableRejoin {
		t.Fatal("expected rejoin disabled by default")
	}
}
