package events

import (
	"context"
	"sync"
	"time"

	"github.com/fadedpez/eldorado/internal/logging"
	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/google/uuid"
)

// Handler consumes a settlement event. Delivery is at-least-once: a
// handler that fails is retried with the same event, so handlers must
// be idempotent (the idempotency ledger pattern applies to consumers
// as much as to intake).
type Handler func(ctx context.Context, evt *entities.Event) error

type delivery struct {
	evt     *entities.Event
	handler Handler
}

// Dispatcher is an in-process publisher of typed settlement events
type Dispatcher struct {
	handlers map[entities.EventType][]Handler
	pending  []delivery
	logger   *logging.Logger
	mu       sync.Mutex
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default
	}
	return &Dispatcher{
		handlers: make(map[entities.EventType][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type
func (d *Dispatcher) Subscribe(eventType entities.EventType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Publish delivers an event to every subscribed handler. Failed
// deliveries are queued and retried by Retry; the publish itself never
// fails because of a consumer.
func (d *Dispatcher) Publish(ctx context.Context, evt *entities.Event) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	d.mu.Lock()
	handlers := append([]Handler(nil), d.handlers[evt.Type]...)
	d.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, evt); err != nil {
			d.logger.Warn("[EVENTS] Handler failed for %s event %s, queued for retry: %v", evt.Type, evt.ID, err)
			d.mu.Lock()
			d.pending = append(d.pending, delivery{evt: evt, handler: handler})
			d.mu.Unlock()
		}
	}
}

// Retry redelivers queued failed deliveries. Deliveries that fail again
// stay queued.
func (d *Dispatcher) Retry(ctx context.Context) {
	d.mu.Lock()
	queued := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, del := range queued {
		if err := del.handler(ctx, del.evt); err != nil {
			d.logger.Warn("[EVENTS] Retry failed for %s event %s: %v", del.evt.Type, del.evt.ID, err)
			d.mu.Lock()
			d.pending = append(d.pending, del)
			d.mu.Unlock()
		}
	}
}

// PendingCount returns the number of deliveries awaiting retry
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
