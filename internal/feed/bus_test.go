package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(10)

	b.Publish("m1")
	b.Publish("m2")

	id, missed, ok := sub.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m1", id)
	assert.Zero(t, missed)

	id, missed, ok = sub.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m2", id)
	assert.Zero(t, missed)
}

func TestBusReportsLagWithoutBlockingProducer(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(2)

	// Five publishes into a buffer of two: the three oldest are evicted,
	// the publisher never blocks, and the consumer resumes from the newest.
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		b.Publish(id)
	}

	id, missed, ok := sub.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m4", id, "stale backlog is evicted, not the fresh update")
	assert.Equal(t, uint64(3), missed, "consumer must learn how much it missed")

	id, missed, ok = sub.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m5", id)
	assert.Zero(t, missed, "lag resets after being reported")
}

func TestBusFanOut(t *testing.T) {
	b := NewBus()
	s1 := b.Subscribe(5)
	s2 := b.Subscribe(5)

	b.Publish("m1")

	id, _, ok := s1.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m1", id)

	id, _, ok = s2.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m1", id)
}

func TestBusCloseTerminatesSubscribers(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)
	b.Close()

	_, _, ok := sub.Recv(context.Background())
	assert.False(t, ok)

	// Publishing after close must not panic.
	b.Publish("m1")

	// Subscribing after close yields a dead subscription.
	late := b.Subscribe(1)
	_, _, ok = late.Recv(context.Background())
	assert.False(t, ok)
}

func TestPublishDuringCloseDoesNotPanic(t *testing.T) {
	for i := 0; i < 100; i++ {
		b := NewBus()
		b.Subscribe(1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish("m")
			}
		}()
		go func() {
			defer wg.Done()
			b.Close()
		}()
		wg.Wait()
	}
}

func TestRecvHonorsContext(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, ok := sub.Recv(ctx)
	assert.False(t, ok)
}
