package notification

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/observability/telemetry"
	"github.com/seu-repo/handover-engine/internal/ports"
	"github.com/seu-repo/handover-engine/pkg/config"
)

const (
	DefaultSubject       = "booking.events"
	defaultBufferSize    = 256
	defaultDrainDeadline = 5 * time.Second
)

// QueueDispatcher hands booking events to a single worker that publishes
// them as JSON. Notify never blocks: a full buffer drops the event.
type QueueDispatcher struct {
	queue   ports.MessageQueue
	subject string
	drain   time.Duration

	mu     sync.RWMutex
	closed bool
	events chan domain.BookingEvent
	done   chan struct{}
	log    *zap.Logger
}

// NewQueueDispatcher starts the publishing worker.
func NewQueueDispatcher(queue ports.MessageQueue, subject string, cfg config.NotificationConfig, log *zap.Logger) *QueueDispatcher {
	if subject == "" {
		subject = DefaultSubject
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	drain := cfg.PublishTimeout
	if drain <= 0 {
		drain = defaultDrainDeadline
	}

	d := &QueueDispatcher{
		queue:   queue,
		subject: subject,
		drain:   drain,
		events:  make(chan domain.BookingEvent, size),
		done:    make(chan struct{}),
		log:     log,
	}
	go d.run()
	return d
}

var _ ports.Notifier = (*QueueDispatcher)(nil)

func (d *QueueDispatcher) Notify(ctx context.Context, event domain.BookingEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped(event, "dispatcher closed")
		return
	}

	select {
	case d.events <- event:
	default:
		d.dropped(event, "buffer full")
	}
}

func (d *QueueDispatcher) dropped(event domain.BookingEvent, reason string) {
	telemetry.NotificationsDroppedTotal.Inc()
	d.log.Warn("Dropping booking event",
		zap.String("reason", reason),
		zap.String("event_type", string(event.Type)),
		zap.String("booking_id", event.BookingID),
	)
}

func (d *QueueDispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		data, err := json.Marshal(event)
		if err != nil {
			d.log.Error("Failed to encode booking event", zap.String("booking_id", event.BookingID), zap.Error(err))
			continue
		}
		if err := d.queue.Publish(d.subject, data); err != nil {
			d.log.Error("Failed to publish booking event",
				zap.String("subject", d.subject),
				zap.String("event_type", string(event.Type)),
				zap.String("booking_id", event.BookingID),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (d *QueueDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-time.After(d.drain):
		d.log.Warn("Notification buffer not drained before shutdown", zap.Int("pending", len(d.events)))
	}
	return nil
}
