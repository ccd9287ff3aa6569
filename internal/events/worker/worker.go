// Package worker relays events from the publisher's channel sink to a slower
// downstream sink (Kafka in production) without putting the broker on the
// mutation path.
package worker

import (
	"context"
	"log/slog"
	"time"

	"credentry/internal/events"
	"credentry/pkg/platform/circuit"
)

// probeInterval is how often an open breaker lets a relay attempt through to
// test whether the sink has recovered.
const probeInterval = 10 * time.Second

// Worker consumes events from a channel and forwards them to a sink. The
// primary store already holds every event, so a failed forward is logged and
// skipped. A circuit breaker stops the worker from hammering a dead broker:
// while open, events are dropped immediately and only an occasional probe
// reaches the sink.
type Worker struct {
	sink      events.Sink
	inbox     <-chan events.Event
	logger    *slog.Logger
	breaker   *circuit.Breaker
	nextProbe time.Time
}

func New(sink events.Sink, inbox <-chan events.Event, logger *slog.Logger) *Worker {
	return &Worker{
		sink:    sink,
		inbox:   inbox,
		logger:  logger,
		breaker: circuit.New("event-sink"),
	}
}

// Run forwards until the context is cancelled or the inbox is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.relay(ctx, event)
		}
	}
}

func (w *Worker) relay(ctx context.Context, event events.Event) {
	if w.breaker.IsOpen() {
		if time.Now().Before(w.nextProbe) {
			w.logger.WarnContext(ctx, "event sink circuit open, dropping relay",
				"event", event.Name,
				"event_id", event.ID,
			)
			return
		}
		w.nextProbe = time.Now().Add(probeInterval)
	}

	if err := w.sink.Append(ctx, event); err != nil {
		_, change := w.breaker.RecordFailure()
		if change.Opened {
			w.nextProbe = time.Now().Add(probeInterval)
			w.logger.ErrorContext(ctx, "event sink circuit opened", "error", err)
		}
		w.logger.ErrorContext(ctx, "failed to relay event",
			"event", event.Name,
			"event_id", event.ID,
			"error", err,
		)
		return
	}
	if _, change := w.breaker.RecordSuccess(); change.Closed {
		w.logger.InfoContext(ctx, "event sink circuit closed")
	}
}
