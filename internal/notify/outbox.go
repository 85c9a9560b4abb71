package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"submissionportal/pkg/ctxdata"
	"submissionportal/pkg/logging"
)

const publishTimeout = 10 * time.Second

type Publisher interface {
	Send(ctx context.Context, key string, message interface{}) error
}

// Outbox hands events to a fixed pool of workers that publish them. Callers
// never block on it and never see a publish error.
type Outbox struct {
	publisher Publisher
	logger    *logging.Logger
	queue     chan *Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewOutbox(publisher Publisher, logger *logging.Logger, workers, queueSize int) *Outbox {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	o := &Outbox{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan *Event, queueSize),
	}

	o.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go o.work()
	}
	return o
}

// Enqueue reports whether the event was accepted. A full queue or a closed
// outbox drops the event with an error log.
func (o *Outbox) Enqueue(ctx context.Context, event *Event) bool {
	if event.Id == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		event.Id = id
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if traceID, ok := ctxdata.GetTraceID(ctx); ok && event.TraceId == "" {
		event.TraceId = traceID
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		o.logger.Error(ctx, "Outbox closed, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.Id.String()),
		)
		return false
	}

	select {
	case o.queue <- event:
		return true
	default:
		o.logger.Error(ctx, "Outbox full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.Id.String()),
		)
		return false
	}
}

// Close stops accepting events and waits for queued ones to be published or
// for ctx to expire.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Outbox) work() {
	defer o.wg.Done()
	for event := range o.queue {
		o.publish(event)
	}
}

func (o *Outbox) publish(event *Event) {
	ctx := context.Background()
	if event.TraceId != "" {
		ctx = ctxdata.WithTraceID(ctx, event.TraceId)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error(ctx, "Publisher panicked", zap.Any("panic", r))
		}
	}()

	if err := o.publisher.Send(ctx, event.AccountId.String(), event); err != nil {
		o.logger.Error(ctx, "Failed to publish notification",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.Id.String()),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug(ctx, "Notification published",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.Id.String()),
	)
}
