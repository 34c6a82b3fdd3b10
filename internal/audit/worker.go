package audit

import (
	"context"
	"log/slog"
)

// Worker drains audit events from a channel into a store, decoupling
// request latency from sink latency. Used when the sink is Kafka; the
// in-memory sink is cheap enough to write synchronously.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run consumes until the context is cancelled. Append failures are logged
// and dropped; the audit trail is observational, not transactional.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"event", string(event.Kind),
					"error", err)
			}
		}
	}
}

// ChannelStore adapts a channel to the Store interface so publishers can
// hand events to the worker without blocking on the sink. Events are dropped
// when the buffer is full rather than stalling a request.
type ChannelStore struct {
	ch chan<- Event
}

func NewChannelStore(ch chan<- Event) *ChannelStore {
	return &ChannelStore{ch: ch}
}

func (s *ChannelStore) Append(_ context.Context, event Event) error {
	select {
	case s.ch <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// ErrBufferFull signals a saturated audit buffer.
var ErrBufferFull = errBufferFull{}

type errBufferFull struct{}

func (errBufferFull) Error() string { return "audit buffer full" }
