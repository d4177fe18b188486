package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/event"
)

var (
	ErrBusFull      = errors.New("event bus full")
	ErrBusClosed    = errors.New("event bus closed")
	ErrNoConsumer   = errors.New("no consumer subscribed")
	ErrHasConsumer  = errors.New("consumer already subscribed")
	ErrSyncConsumed = errors.New("synchronous bus is drained by Publish")
)

// Consumer handles one delivered event. The bus fans in to exactly one
// consumer per instance.
type Consumer func(event.Event)

// Bus is a bounded multi-producer, single-consumer event channel.
//
// Events published by the same producer are delivered in publish order.
// Across producers only arrival order holds; callers that need
// deterministic cross-source ordering use a single synchronous producer
// with NewSynchronous.
//
// Publishing after Close is a warning no-op, not a failure: feeds may
// outlive the need to publish during shutdown races.
type Bus struct {
	ch          chan event.Event
	done        chan struct{}
	consumer    Consumer
	sync        bool
	closed      uint32
	warnedClose uint32
	publishWait time.Duration
}

const defaultPublishWait = 100 * time.Millisecond

// New allocates a buffered bus with the given capacity for live ingestion.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bus{
		ch:          make(chan event.Event, capacity),
		done:        make(chan struct{}),
		publishWait: defaultPublishWait,
	}
}

// NewSynchronous allocates a bus that delivers each event to the consumer
// inside Publish, on the publisher's goroutine. This is the deterministic
// replay discipline: one producer, dispatch completes before the producer
// regains control.
func NewSynchronous() *Bus {
	return &Bus{sync: true, done: make(chan struct{})}
}

// Subscribe registers the single consumer. A second subscription is a
// programming error.
func (b *Bus) Subscribe(c Consumer) error {
	if c == nil {
		return ErrNoConsumer
	}
	if b.consumer != nil {
		return ErrHasConsumer
	}
	b.consumer = c
	return nil
}

// Publish enqueues an event for the consumer. It never blocks beyond the
// bus's bounded queuing delay; a full queue surfaces ErrBusFull to the
// producer rather than stalling it.
func (b *Bus) Publish(e event.Event) error {
	if atomic.LoadUint32(&b.closed) != 0 {
		if atomic.CompareAndSwapUint32(&b.warnedClose, 0, 1) {
			logs.Warnf("publish after bus close, dropping %s event", e.Kind())
		}
		return ErrBusClosed
	}
	if b.consumer == nil {
		return ErrNoConsumer
	}
	if b.sync {
		b.consumer(e)
		return nil
	}
	select {
	case b.ch <- e:
		return nil
	default:
	}
	select {
	case b.ch <- e:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-time.After(b.publishWait):
		return ErrBusFull
	}
}

// Close stops the bus from accepting new events. Already queued events are
// still delivered by Run.
func (b *Bus) Close() {
	if atomic.CompareAndSwapUint32(&b.closed, 0, 1) {
		close(b.done)
	}
}

// Closed reports whether the bus stopped accepting events.
func (b *Bus) Closed() bool {
	return atomic.LoadUint32(&b.closed) != 0
}

// Run drains events into the subscribed consumer until the context is done
// or the bus is closed and empty. The consumer runs entirely on the Run
// goroutine; cancellation is observed only between deliveries, never inside
// one.
func (b *Bus) Run(ctx context.Context) error {
	if b.sync {
		return ErrSyncConsumed
	}
	if b.consumer == nil {
		return ErrNoConsumer
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-b.ch:
			b.consumer(e)
		case <-b.done:
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case e := <-b.ch:
					b.consumer(e)
				default:
					return nil
				}
			}
		}
	}
}
