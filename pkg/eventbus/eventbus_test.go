package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New[string]()
	t.Cleanup(bus.Shutdown)

	ch1, cancel1 := bus.Subscribe(context.Background())
	defer cancel1()
	ch2, cancel2 := bus.Subscribe(context.Background())
	defer cancel2()

	assert.Equal(t, 2, bus.Publish("hello"))
	assert.Equal(t, "hello", <-ch1)
	assert.Equal(t, "hello", <-ch2)
}

func TestCancelClosesChannel(t *testing.T) {
	bus := New[int]()
	t.Cleanup(bus.Shutdown)

	ch, cancel := bus.Subscribe(context.Background())
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Publish(1))
}

func TestContextCancellationUnsubscribes(t *testing.T) {
	bus := New[int]()
	t.Cleanup(bus.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := bus.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewWithBuffer[int](1)
	t.Cleanup(bus.Shutdown)

	_, cancel := bus.Subscribe(context.Background())
	defer cancel()

	assert.Equal(t, 1, bus.Publish(1))

	done := make(chan struct{})
	go func() {
		bus.Publish(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestShutdownStopsDelivery(t *testing.T) {
	bus := New[int]()

	ch, _ := bus.Subscribe(context.Background())
	bus.Shutdown()
	bus.Shutdown()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Publish(42))

	// Subscribing after shutdown yields an already-closed channel.
	late, cancel := bus.Subscribe(context.Background())
	defer cancel()
	_, open = <-late
	assert.False(t, open)
}
