package registry_test

import (
	"sync"
	"testing"

	"loom/internal/breaker"
	"loom/internal/config"
	"loom/internal/metrics"
	"loom/internal/registry"
)

func TestNewBuildsEveryConfiguredDependency(t *testing.T) {
	cfg := config.Default()
	reg, err := registry.New(&cfg, metrics.NewCollector(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	names := reg.Names()
	if len(names) != len(cfg.Dependencies) {
		t.Fatalf("expected %d dependencies, got %d", len(cfg.Dependencies), len(names))
	}
	for _, name := range names {
		dep, err := reg.Get(name)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", name, err)
		}
		if dep.Limiter == nil || dep.Breaker == nil {
			t.Fatalf("dependency %s missing runtime state", name)
		}
		if dep.Retry.MaxAttempts <= 0 {
			t.Fatalf("dependency %s has no effective retry policy", name)
		}
	}
}

func TestGetUnknownDependency(t *testing.T) {
	cfg := config.Default()
	reg, err := registry.New(&cfg, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := reg.Get("no-such-api"); err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestNewRejectsInvalidDependencyConfig(t *testing.T) {
	cfg := config.Default()
	dep := cfg.Dependencies[config.DepYouTube]
	dep.Burst = 0
	cfg.Dependencies[config.DepYouTube] = dep

	if _, err := registry.New(&cfg, nil, nil); err == nil {
		t.Fatal("expected construction error for zero burst")
	}
}

func TestBreakerTransitionsAreObserved(t *testing.T) {
	cfg := config.Default()

	var mu sync.Mutex
	var seen []string
	reg, err := registry.New(&cfg, nil, func(dependency string, from, to breaker.State) {
		mu.Lock()
		seen = append(seen, dependency+":"+to.String())
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	dep, err := reg.Get(config.DepWhisper)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for i := 0; i < cfg.Dependencies[config.DepWhisper].FailureThreshold; i++ {
		dep.Breaker.RecordOutcome(false)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != config.DepWhisper+":open" {
		t.Fatalf("unexpected transitions: %v", seen)
	}
}

func TestSnapshotIncludesRuntimeState(t *testing.T) {
	cfg := config.Default()
	collector := metrics.NewCollector()
	reg, err := registry.New(&cfg, collector, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	states := reg.Snapshot()
	if len(states) != len(cfg.Dependencies) {
		t.Fatalf("expected %d states, got %d", len(cfg.Dependencies), len(states))
	}
	for _, state := range states {
		if state.BreakerState != "closed" {
			t.Fatalf("expected fresh breaker closed, got %s for %s", state.BreakerState, state.Name)
		}
		if state.Tokens <= 0 || state.Tokens > state.Burst {
			t.Fatalf("token level out of range for %s: %+v", state.Name, state)
		}
	}
}
