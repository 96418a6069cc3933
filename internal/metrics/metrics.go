package metrics

import (
	"sort"
	"sync"
	"time"
)

// RejectionReason names why a call was refused before reaching the dependency.
type RejectionReason string

const (
	RejectionCircuitOpen RejectionReason = "circuit_open"
	RejectionRateLimited RejectionReason = "rate_limited"
)

// defaultBuckets are the latency histogram upper bounds. Calls slower than
// the last bound land in the overflow bucket.
var defaultBuckets = []time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
	5 * time.Second,
	10 * time.Second,
}

// Collector aggregates per-dependency call counters and latency histograms.
// It is safe for concurrent use; every dependency gets its own series.
type Collector struct {
	mu      sync.Mutex
	buckets []time.Duration
	deps    map[string]*series
}

type series struct {
	attempts     uint64
	successes    uint64
	failures     uint64
	rejections   map[RejectionReason]uint64
	latency      []uint64
	totalLatency time.Duration
}

// NewCollector constructs a collector with the default latency buckets.
func NewCollector() *Collector {
	return &Collector{
		buckets: defaultBuckets,
		deps:    make(map[string]*series),
	}
}

func (c *Collector) seriesLocked(dependency string) *series {
	s, ok := c.deps[dependency]
	if !ok {
		s = &series{
			rejections: make(map[RejectionReason]uint64),
			latency:    make([]uint64, len(c.buckets)+1),
		}
		c.deps[dependency] = s
	}
	return s
}

// RecordAttempt records one completed call attempt against a dependency.
func (c *Collector) RecordAttempt(dependency string, latency time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.seriesLocked(dependency)
	s.attempts++
	if success {
		s.successes++
	} else {
		s.failures++
	}
	s.totalLatency += latency

	idx := len(c.buckets)
	for i, bound := range c.buckets {
		if latency <= bound {
			idx = i
			break
		}
	}
	s.latency[idx]++
}

// RecordRejection records a call refused by the breaker or the rate limiter.
// Rejections do not count as attempts; no remote call was made.
func (c *Collector) RecordRejection(dependency string, reason RejectionReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seriesLocked(dependency).rejections[reason]++
}

// BucketCount is one latency histogram cell. UpperMS of zero marks the
// overflow bucket.
type BucketCount struct {
	UpperMS int64  `json:"upper_ms"`
	Count   uint64 `json:"count"`
}

// DependencySnapshot is the read-only view of one dependency's counters.
type DependencySnapshot struct {
	Name        string        `json:"name"`
	Attempts    uint64        `json:"attempts"`
	Successes   uint64        `json:"successes"`
	Failures    uint64        `json:"failures"`
	CircuitOpen uint64        `json:"circuit_open_rejections"`
	RateLimited uint64        `json:"rate_limited_rejections"`
	AvgLatency  time.Duration `json:"avg_latency_ns"`
	Latency     []BucketCount `json:"latency_buckets"`
}

// Snapshot returns a point-in-time copy of all series, sorted by name.
func (c *Collector) Snapshot() []DependencySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]DependencySnapshot, 0, len(c.deps))
	for name, s := range c.deps {
		snap := DependencySnapshot{
			Name:        name,
			Attempts:    s.attempts,
			Successes:   s.successes,
			Failures:    s.failures,
			CircuitOpen: s.rejections[RejectionCircuitOpen],
			RateLimited: s.rejections[RejectionRateLimited],
		}
		if s.attempts > 0 {
			snap.AvgLatency = s.totalLatency / time.Duration(s.attempts)
		}
		snap.Latency = make([]BucketCount, len(s.latency))
		for i, count := range s.latency {
			var upper int64
			if i < len(c.buckets) {
				upper = c.buckets[i].Milliseconds()
			}
			snap.Latency[i] = BucketCount{UpperMS: upper, Count: count}
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dependency returns the snapshot for a single dependency and whether any
// activity has been recorded for it.
func (c *Collector) Dependency(name string) (DependencySnapshot, bool) {
	for _, snap := range c.Snapshot() {
		if snap.Name == name {
			return snap, true
		}
	}
	return DependencySnapshot{}, false
}
