// Package publisher fans audit events out to a primary store and optional
// forwarding sinks, synchronously by default or through a buffered channel.
package publisher

import (
	"context"
	"log"
	"sync"
	"time"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
	audit "github.com/ip-fomin/LaborX-backend/pkg/platform/audit"
)

type Publisher struct {
	store audit.Store
	sinks []audit.Sink

	ch     chan audit.Event
	wg     sync.WaitGroup
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity. Emit never blocks the caller unless the buffer is
// full; Close drains remaining events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.ch = make(chan audit.Event, size)
	}
}

// WithSink adds a forwarding sink (e.g. Kafka). Sink failures are logged,
// never propagated: audit fan-out must not fail domain operations.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.ch != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event. The timestamp and category are stamped here
// so call sites stay one-liners.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.Action(event.Action).Category()
	}

	if p.ch != nil {
		p.ch <- event
		return nil
	}
	return p.deliver(context.WithoutCancel(ctx), event)
}

// List returns the recorded events for an account from the primary store.
func (p *Publisher) List(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}

// Close stops the async worker and drains buffered events.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.ch != nil {
			close(p.ch)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.ch {
		if err := p.deliver(context.Background(), event); err != nil {
			log.Printf("audit: async append failed: %v", err)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	err := p.store.Append(ctx, event)
	for _, sink := range p.sinks {
		if sinkErr := sink.Append(ctx, event); sinkErr != nil {
			log.Printf("audit: sink append failed: %v", sinkErr)
		}
	}
	return err
}
