// internal/engine/bus/bus.go
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/common/metrics"
)

// Handler processes one event. A non-nil error is logged and counted but
// never stops delivery to the remaining subscribers.
type Handler func(ctx context.Context, evt Event) error

type subscription struct {
	name    string
	handler Handler
}

// Recorder receives per-event processing telemetry.
type Recorder interface {
	RecordEventProcessed(ctx context.Context, eventType, status string)
	RecordEventDuration(ctx context.Context, eventType string, duration time.Duration)
}

// Bus is an in-process dispatcher for domain events. Each event type gets
// one FIFO queue drained by a single goroutine, so events of the same type
// are delivered in publish order and subscribers of one type never run
// concurrently with each other. Distinct event types dispatch independently.
type Bus struct {
	mu        sync.Mutex
	subs      map[string][]subscription
	queues    map[string]chan Event
	wg        sync.WaitGroup
	pubs      sync.WaitGroup
	log       logger.Logger
	queueSize int
	closed    bool
	recorder  Recorder
}

func New(log logger.Logger, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Bus{
		subs:      make(map[string][]subscription),
		queues:    make(map[string]chan Event),
		log:       log.WithFields(map[string]interface{}{"component": "bus"}),
		queueSize: queueSize,
	}
}

// Instrument attaches a telemetry recorder. Must be called before the first
// Publish.
func (b *Bus) Instrument(rec Recorder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorder = rec
}

// Subscribe registers a named handler for an event type. Handlers are
// invoked in registration order.
func (b *Bus) Subscribe(eventType, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[eventType] = append(b.subs[eventType], subscription{name: name, handler: h})
	b.ensureDispatcherLocked(eventType)

	b.log.Info("handler subscribed", map[string]interface{}{
		"eventType": eventType,
		"handler":   name,
	})
}

// Publish queues an event for asynchronous dispatch. The producer does not
// wait for handlers to run.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus is closed")
	}
	q := b.ensureDispatcherLocked(evt.EventType())
	b.pubs.Add(1)
	b.mu.Unlock()
	defer b.pubs.Done()

	select {
	case q <- evt:
	case <-ctx.Done():
		return ctx.Err()
	}

	metrics.EventsPublished.WithLabelValues(evt.EventType()).Inc()
	return nil
}

// Close stops accepting events, drains the queues and waits for dispatchers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	// In-flight Publish calls must finish their queue sends before the
	// queues close, or the send would panic.
	b.pubs.Wait()

	b.mu.Lock()
	for _, q := range b.queues {
		close(q)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) ensureDispatcherLocked(eventType string) chan Event {
	q, ok := b.queues[eventType]
	if ok {
		return q
	}

	q = make(chan Event, b.queueSize)
	b.queues[eventType] = q

	b.wg.Add(1)
	go b.dispatch(eventType, q)

	return q
}

func (b *Bus) dispatch(eventType string, q chan Event) {
	defer b.wg.Done()

	for evt := range q {
		start := time.Now()
		status := "ok"

		b.mu.Lock()
		subs := make([]subscription, len(b.subs[eventType]))
		copy(subs, b.subs[eventType])
		rec := b.recorder
		b.mu.Unlock()

		for _, sub := range subs {
			if err := sub.handler(context.Background(), evt); err != nil {
				status = "error"
				metrics.HandlerErrors.WithLabelValues(eventType, sub.name).Inc()
				b.log.Error("event handler failed", map[string]interface{}{
					"eventType": eventType,
					"handler":   sub.name,
					"workspace": evt.Workspace(),
					"error":     err.Error(),
				})
			}
		}

		metrics.EventDispatchDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		if rec != nil {
			rec.RecordEventProcessed(context.Background(), eventType, status)
			rec.RecordEventDuration(context.Background(), eventType, time.Since(start))
		}
	}
}
