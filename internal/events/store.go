package events

import "context"

// Sink receives published events. Implementations must be safe for
// concurrent use; Append is called once per successful mutation, in
// commit order.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a Sink that also serves the read API.
type Store interface {
	Sink
	ListBySubject(ctx context.Context, address string, limit int) ([]Event, error)
}

// MultiSink fans an event out to every sink in order. The first failure
// aborts the emit so the enclosing mutation sees the error.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, event Event) error {
	for _, s := range m {
		if err := s.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// ChannelSink bridges the publisher to a relay worker. Appends never block:
// when the channel is full the event is dropped for the relay (the primary
// store has already persisted it).
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink with the given buffer. The returned channel
// is consumed by a worker.Worker.
func NewChannelSink(buffer int) (*ChannelSink, <-chan Event) {
	ch := make(chan Event, buffer)
	return &ChannelSink{ch: ch}, ch
}

func (s *ChannelSink) Append(_ context.Context, event Event) error {
	select {
	case s.ch <- event:
	default:
	}
	return nil
}

// Close releases the channel so the consuming worker drains and exits.
func (s *ChannelSink) Close() {
	close(s.ch)
}
