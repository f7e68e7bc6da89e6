// Package events distributes job lifecycle notifications to interested
// subscribers, such as the in-memory job registry and the submission
// history recorder.
package events

import (
	"context"
	"sync"

	"github.com/alcyonehq/alcyone/internal/logger"
)

// EventType represents the type of job lifecycle event
type EventType string

const (
	// EventJobStateChanged is emitted on every lifecycle transition
	EventJobStateChanged EventType = "job_state_changed"
	// EventJobCompleted is emitted when a job reaches the Completed state
	EventJobCompleted EventType = "job_completed"
	// EventJobFailed is emitted when a job reaches a failed terminal state
	EventJobFailed EventType = "job_failed"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// Event represents one job lifecycle notification
type Event struct {
	Type           EventType // The type of event
	JobID          string    // The job ID
	State          string    // The lifecycle state at emission
	SchedulerJobID string    // The scheduler-assigned id, once known
	Reason         string    // The failure reason, for failed events
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

// Bus routes published events to subscribed handlers. Handlers for one
// event run synchronously in subscription order and events dispatch in
// publish order, so subscribers observe lifecycle transitions in the order
// they happened. Publishing never blocks: when the buffer is full the
// event is dropped with a warning.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	events   chan Event
}

// NewBus returns a Bus with the given event buffer size.
func NewBus(size int) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		events:   make(chan Event, size),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	logger.Debugf("📝 Registered handler for event type: %s", eventType)
}

// Publish queues an event for dispatch without blocking
func (b *Bus) Publish(event Event) {
	select {
	case b.events <- event:
		logger.Debugf("📢 Published event: %s (Job: %s)", event.Type, event.JobID)
	default:
		logger.Warnf("event buffer full, dropping %s for job %s", event.Type, event.JobID)
	}
}

// Start starts the event processing loop
func (b *Bus) Start(ctx context.Context) {
	go b.process(ctx)
	logger.Info("🎯 Started event processing loop")
}

// process dispatches events in the background until ctx is done
func (b *Bus) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Stopping event processing loop")
			return
		case event := <-b.events:
			b.mu.RLock()
			eventHandlers := b.handlers[event.Type]
			b.mu.RUnlock()

			for _, handler := range eventHandlers {
				if err := handler(ctx, event); err != nil {
					logger.Errorf("❌ Failed to handle event %s for job %s: %v", event.Type, event.JobID, err)
				}
			}
		}
	}
}

// defaultBus serves the package-level API used by the job runner and the
// service layer.
var defaultBus = NewBus(EventChannelSize)

// Default returns the package-level bus.
func Default() *Bus {
	return defaultBus
}

// Subscribe registers a handler on the default bus
func Subscribe(eventType EventType, handler Handler) {
	defaultBus.Subscribe(eventType, handler)
}

// Publish queues an event on the default bus
func Publish(event Event) {
	defaultBus.Publish(event)
}

// Start starts the default bus's processing loop
func Start(ctx context.Context) {
	defaultBus.Start(ctx)
}
