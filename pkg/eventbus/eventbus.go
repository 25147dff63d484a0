// Package eventbus provides a generic pub/sub bus with per-subscriber
// buffering. Slow subscribers drop events rather than stall the publisher.
package eventbus

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

const defaultBufferSize = 100

// EventBus fans events out to subscribers over buffered channels.
type EventBus[T any] struct {
	subscribers *xsync.Map[string, *subscriber[T]]
	isShutdown  atomic.Bool
	seq         atomic.Uint64
	dropped     atomic.Uint64
	bufferSize  int
}

type subscriber[T any] struct {
	id         string
	ch         chan T
	lastActive atomic.Int64
}

// New creates a bus with the default subscriber buffer size.
func New[T any]() *EventBus[T] {
	return NewWithBuffer[T](defaultBufferSize)
}

// NewWithBuffer creates a bus whose subscriber channels hold up to size events.
func NewWithBuffer[T any](size int) *EventBus[T] {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &EventBus[T]{
		subscribers: xsync.NewMap[string, *subscriber[T]](),
		bufferSize:  size,
	}
}

// Subscribe registers a receiver. The channel closes when the returned cancel
// function runs, the context ends, or the bus shuts down.
func (eb *EventBus[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	if eb.isShutdown.Load() {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	id := "sub_" + strconv.FormatUint(eb.seq.Add(1), 10)
	sub := &subscriber[T]{id: id, ch: make(chan T, eb.bufferSize)}
	sub.lastActive.Store(time.Now().UnixNano())
	eb.subscribers.Store(id, sub)

	go func() {
		<-ctx.Done()
		eb.unsubscribe(id)
	}()

	return sub.ch, func() { eb.unsubscribe(id) }
}

// Publish delivers the event to every subscriber with buffer room and returns
// the delivery count. Full subscribers are skipped, not waited on.
func (eb *EventBus[T]) Publish(event T) int {
	if eb.isShutdown.Load() {
		return 0
	}

	delivered := 0
	now := time.Now().UnixNano()
	eb.subscribers.Range(func(_ string, sub *subscriber[T]) bool {
		select {
		case sub.ch <- event:
			sub.lastActive.Store(now)
			delivered++
		default:
			eb.dropped.Add(1)
		}
		return true
	})
	return delivered
}

// Dropped returns the total events discarded because a subscriber was full.
func (eb *EventBus[T]) Dropped() uint64 {
	return eb.dropped.Load()
}

// Shutdown closes all subscriber channels. Safe to call more than once.
func (eb *EventBus[T]) Shutdown() {
	if !eb.isShutdown.CompareAndSwap(false, true) {
		return
	}
	// LoadAndDelete in unsubscribe keeps each channel closed exactly once
	// even when a subscriber cancels concurrently.
	eb.subscribers.Range(func(id string, _ *subscriber[T]) bool {
		eb.unsubscribe(id)
		return true
	})
}

func (eb *EventBus[T]) unsubscribe(id string) {
	if sub, exists := eb.subscribers.LoadAndDelete(id); exists {
		close(sub.ch)
	}
}
