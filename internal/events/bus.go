package events

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrBusClosed is returned when subscribing to a closed bus.
	ErrBusClosed = errors.New("event bus closed")
	// ErrSubscriberExists is returned when a subscriber id is already taken.
	ErrSubscriberExists = errors.New("subscriber id already registered")
)

// DefaultBuffer is the channel capacity used when a subscriber asks for none.
const DefaultBuffer = 64

type subscriber struct {
	id      string
	ch      chan Event
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus fans events out to registered subscribers. Publish never blocks; a
// subscriber whose buffer is full loses the event and its drop counter grows.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	published   atomic.Uint64
	closed      bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers a subscriber and returns its receive channel. The
// channel is closed on Unsubscribe or bus Close.
func (b *Bus) Subscribe(id string, buffer int) (<-chan Event, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return nil, ErrSubscriberExists
	}

	sub := &subscriber{id: id, ch: make(chan Event, buffer)}
	b.subscribers[id] = sub
	return sub.ch, nil
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, exists := b.subscribers[id]
	if exists {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if exists {
		close(sub.ch)
	}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.published.Add(1)

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- evt:
			sub.sent.Add(1)
		default:
			sub.dropped.Add(1)
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// SubscriberStats reports per-subscriber delivery counters.
type SubscriberStats struct {
	ID      string `json:"id"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// Stats returns delivery counters for every live subscriber, sorted by id.
func (b *Bus) Stats() []SubscriberStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		stats = append(stats, SubscriberStats{
			ID:      sub.id,
			Sent:    sub.sent.Load(),
			Dropped: sub.dropped.Load(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}

// Published returns the total number of events published to the bus.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}
