package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"credentry/pkg/requestcontext"
)

// Publisher stamps and delivers events to a sink. Synchronous by default so
// emission failures abort the mutation that produced the event; an async
// buffer can be enabled where losing an observer-side event is acceptable.
type Publisher struct {
	sink  Sink
	inbox chan Event
	done  chan struct{}
	once  sync.Once
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking through a buffered channel drained
// by a background goroutine. Events are dropped when the buffer is full.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(sink Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit stamps the event with an ID, timestamp, and request enrichment from
// context, then delivers it.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		// Buffer full: drop rather than stall the mutation path.
	}
	return nil
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.sink.Append(context.Background(), event)
	}
}

// Close drains any buffered events and stops the background goroutine.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}
