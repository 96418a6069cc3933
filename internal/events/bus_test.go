package events_test

import (
	"sync"
	"testing"
	"time"

	"loom/internal/events"
	"loom/internal/queue"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	first, err := bus.Subscribe("first", 4)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	second, err := bus.Subscribe("second", 4)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	job := &queue.Job{ID: 7, VideoID: "vid-7"}
	bus.Publish(events.JobStarted(job))

	for name, ch := range map[string]<-chan events.Event{"first": first, "second": second} {
		select {
		case evt := <-ch:
			if evt.Type != events.TypeJobStarted || evt.JobID != 7 {
				t.Fatalf("%s received unexpected event: %#v", name, evt)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive the event", name)
		}
	}
}

func TestDuplicateSubscriberIDRejected(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	if _, err := bus.Subscribe("dup", 1); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if _, err := bus.Subscribe("dup", 1); err != events.ErrSubscriberExists {
		t.Fatalf("expected ErrSubscriberExists, got %v", err)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	if _, err := bus.Subscribe("slow", 1); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	job := &queue.Job{ID: 1, VideoID: "vid-1"}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(events.JobStarted(job))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	stats := bus.Stats()
	if len(stats) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", len(stats))
	}
	if stats[0].Sent != 1 || stats[0].Dropped != 9 {
		t.Fatalf("unexpected delivery counters: %+v", stats[0])
	}
	if bus.Published() != 10 {
		t.Fatalf("expected 10 published events, got %d", bus.Published())
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	ch, err := bus.Subscribe("gone", 1)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	bus.Unsubscribe("gone")

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected closed channel after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	// The id is free again.
	if _, err := bus.Subscribe("gone", 1); err != nil {
		t.Fatalf("resubscribe failed: %v", err)
	}
}

func TestCloseRejectsNewSubscribers(t *testing.T) {
	bus := events.NewBus()
	ch, err := bus.Subscribe("only", 1)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	bus.Close()

	if _, open := <-ch; open {
		t.Fatal("expected channel closed by bus Close")
	}
	if _, err := bus.Subscribe("late", 1); err != events.ErrBusClosed {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
	// Publishing after close is a silent no-op.
	bus.Publish(events.Event{Type: events.TypeJobStarted})
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	var consumers sync.WaitGroup
	for i := 0; i < 4; i++ {
		id := string(rune('a' + i))
		ch, err := bus.Subscribe(id, 8)
		if err != nil {
			t.Fatalf("Subscribe %s failed: %v", id, err)
		}
		consumers.Add(1)
		go func(ch <-chan events.Event) {
			defer consumers.Done()
			for range ch {
			}
		}(ch)
	}

	var publishers sync.WaitGroup
	for i := 0; i < 4; i++ {
		publishers.Add(1)
		go func(n int) {
			defer publishers.Done()
			job := &queue.Job{ID: int64(n), VideoID: "vid"}
			for j := 0; j < 100; j++ {
				bus.Publish(events.JobStarted(job))
			}
		}(i)
	}
	publishers.Wait()

	// Close unblocks the draining subscribers.
	bus.Close()
	done := make(chan struct{})
	go func() {
		consumers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribers did not finish")
	}

	if bus.Published() != 400 {
		t.Fatalf("expected 400 published, got %d", bus.Published())
	}
}
