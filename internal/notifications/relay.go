package notifications

import (
	"context"
	"sync"

	"loom/internal/config"
	"loom/internal/events"
	"loom/internal/logging"
	"loom/internal/queue"

	"log/slog"
)

const subscriberID = "notifications"

// Relay forwards bus events to the notification service. Which event
// categories produce notifications is controlled by the notifications
// section of the configuration.
type Relay struct {
	service Service
	bus     *events.Bus
	logger  *slog.Logger

	jobs    bool
	errors  bool
	breaker bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRelay wires a relay between the bus and the configured service.
func NewRelay(cfg *config.Config, bus *events.Bus, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Relay{
		service: NewService(cfg),
		bus:     bus,
		logger:  logging.NewComponentLogger(logger, "notifications"),
		jobs:    cfg.Notifications.Jobs,
		errors:  cfg.Notifications.Errors,
		breaker: cfg.Notifications.Breaker,
	}
}

// Start subscribes to the bus and begins forwarding events. It is a no-op
// when the bus is absent.
func (r *Relay) Start(ctx context.Context) error {
	if r == nil || r.bus == nil {
		return nil
	}
	ch, err := r.bus.Subscribe(subscriberID, events.DefaultBuffer)
	if err != nil {
		return err
	}

	relayCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-relayCtx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				r.dispatch(relayCtx, evt)
			}
		}
	}()
	return nil
}

// Stop unsubscribes from the bus and waits for in-flight dispatches.
func (r *Relay) Stop() {
	if r == nil {
		return
	}
	if r.bus != nil {
		r.bus.Unsubscribe(subscriberID)
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.wg.Wait()
}

func (r *Relay) dispatch(ctx context.Context, evt events.Event) {
	var err error
	switch evt.Type {
	case events.TypeJobFinished:
		switch evt.JobStatus {
		case queue.StatusCompleted:
			if r.jobs {
				err = r.service.NotifyJobCompleted(ctx, evt.VideoID, "")
			}
		case queue.StatusPartialFailure:
			if r.jobs {
				err = r.service.NotifyJobPartialFailure(ctx, evt.VideoID, evt.Detail)
			}
		case queue.StatusFailed:
			if r.errors {
				err = r.service.NotifyJobFailed(ctx, evt.VideoID, evt.Detail)
			}
		}
	case events.TypeJobCancelled:
		if r.jobs {
			err = r.service.NotifyJobCancelled(ctx, evt.VideoID, evt.Detail)
		}
	case events.TypeBreakerChanged:
		if !r.breaker {
			return
		}
		switch evt.ToState {
		case "open":
			err = r.service.NotifyBreakerOpened(ctx, evt.Dependency)
		case "closed":
			if evt.FromState != "" {
				err = r.service.NotifyBreakerClosed(ctx, evt.Dependency)
			}
		}
	}
	if err != nil {
		r.logger.Warn("notification delivery failed",
			logging.String(logging.FieldEventType, string(evt.Type)),
			logging.Error(err))
	}
}
