package registry

import (
	"fmt"
	"sort"

	"loom/internal/breaker"
	"loom/internal/config"
	"loom/internal/metrics"
	"loom/internal/ratelimit"
)

// Dependency bundles the runtime resilience state for one external service.
// The limiter and breaker are shared by every job touching the dependency.
type Dependency struct {
	Name    string
	Config  config.Dependency
	Retry   config.Retry
	Limiter *ratelimit.Limiter
	Breaker *breaker.Breaker
}

// TransitionFunc observes breaker state changes across all dependencies.
type TransitionFunc func(dependency string, from, to breaker.State)

// Registry holds the per-dependency limiters, breakers, and metrics built
// from configuration at startup. It is immutable after construction; only the
// runtime state inside each dependency changes.
type Registry struct {
	deps      map[string]*Dependency
	collector *metrics.Collector
}

// New builds a registry from configuration. onTransition, when non-nil, is
// attached to every breaker so state changes can be logged and published.
func New(cfg *config.Config, collector *metrics.Collector, onTransition TransitionFunc) (*Registry, error) {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	deps := make(map[string]*Dependency, len(cfg.Dependencies))
	for name, depCfg := range cfg.Dependencies {
		limiter, err := ratelimit.New(depCfg.Rate, depCfg.Burst, depCfg.MaxWait())
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", name, err)
		}
		brk, err := breaker.New(depCfg.FailureThreshold, depCfg.OpenDuration())
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", name, err)
		}
		if onTransition != nil {
			depName := name
			brk.OnStateChange(func(from, to breaker.State) {
				onTransition(depName, from, to)
			})
		}
		deps[name] = &Dependency{
			Name:    name,
			Config:  depCfg,
			Retry:   cfg.RetryFor(name),
			Limiter: limiter,
			Breaker: brk,
		}
	}
	return &Registry{deps: deps, collector: collector}, nil
}

// Get returns the named dependency.
func (r *Registry) Get(name string) (*Dependency, error) {
	dep, ok := r.deps[name]
	if !ok {
		return nil, fmt.Errorf("unknown dependency %q", name)
	}
	return dep, nil
}

// Names returns registered dependency names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.deps))
	for name := range r.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metrics returns the shared collector.
func (r *Registry) Metrics() *metrics.Collector {
	return r.collector
}

// State is the read-only runtime view of one dependency, combining breaker
// position, token level, and call counters for the status surfaces.
type State struct {
	Name         string                     `json:"name"`
	BreakerState string                     `json:"breaker_state"`
	Failures     int                        `json:"consecutive_failures"`
	Tokens       float64                    `json:"tokens"`
	Burst        float64                    `json:"burst"`
	Metrics      metrics.DependencySnapshot `json:"metrics"`
}

// Snapshot returns the runtime state of every dependency, sorted by name.
func (r *Registry) Snapshot() []State {
	states := make([]State, 0, len(r.deps))
	for _, name := range r.Names() {
		dep := r.deps[name]
		state := State{
			Name:         name,
			BreakerState: dep.Breaker.State().String(),
			Failures:     dep.Breaker.Failures(),
			Tokens:       dep.Limiter.Tokens(),
			Burst:        dep.Limiter.Burst(),
		}
		if snap, ok := r.collector.Dependency(name); ok {
			state.Metrics = snap
		} else {
			state.Metrics = metrics.DependencySnapshot{Name: name}
		}
		states = append(states, state)
	}
	return states
}
