// Package events decouples primary writes from derived-cache rebuilds.
// The document layer publishes WriteEvents; exactly one consumer (the
// aggregation manager) drains them. This makes the at-most-one-listener
// assumption of the rebuild side effects explicit instead of implicit
// in control flow.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/domain"
)

// Handler consumes one write event. Errors are logged, never propagated
// back to the write that produced the event.
type Handler interface {
	HandleEvent(ctx context.Context, ev domain.WriteEvent) error
}

// Dispatcher fans write events into a single background consumer.
type Dispatcher struct {
	ch     chan domain.WriteEvent
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	started bool
}

// NewDispatcher creates a dispatcher with a bounded queue.
func NewDispatcher(buffer int, logger *zap.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		ch:     make(chan domain.WriteEvent, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start runs the consumer loop. Call exactly once.
func (d *Dispatcher) Start(ctx context.Context, h Handler) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for ev := range d.ch {
			if err := h.HandleEvent(ctx, ev); err != nil {
				// Staleness of a derived cache is preferred over
				// failing the triggering write.
				d.logger.Warn("write event handler failed",
					zap.String("kind", string(ev.Kind)),
					zap.String("spirit_id", ev.SpiritID),
					zap.Error(err),
				)
			}
		}
	}()
}

// Publish enqueues an event without blocking the write path. When the
// queue is full the event is dropped with a warning; the caches are
// eventually rebuilt by the next qualifying write.
func (d *Dispatcher) Publish(ev domain.WriteEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("kind", string(ev.Kind)),
			zap.String("spirit_id", ev.SpiritID),
		)
	}
}

// Close stops accepting events and waits for the consumer to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	started := d.started
	d.mu.Unlock()

	if started {
		<-d.done
	}
}
