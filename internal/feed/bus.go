package feed

import (
	"context"
	"sync"
)

// Bus is a bounded, lossy fan-out of market-changed notifications. Publish
// never blocks: when a subscriber's buffer is full the oldest queued update
// is evicted to make room, so the consumer always resumes from the newest
// notifications, and its next receive reports how many it missed.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// Subscription is one consumer's view of the bus
type Subscription struct {
	ch     chan string
	mu     sync.Mutex
	missed uint64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a consumer with the given buffer depth
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{ch: make(chan string, buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Publish fans a market ID out to every subscriber without blocking. The
// sends happen under the bus lock, which keeps them ordered against Close;
// they cannot block because a full buffer is drained first.
func (b *Bus) Publish(marketID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		for {
			select {
			case sub.ch <- marketID:
			default:
				// Full. Evict the oldest entry and retry; only Publish
				// fills the channel, so the retry cannot fail twice.
				select {
				case <-sub.ch:
					sub.mu.Lock()
					sub.missed++
					sub.mu.Unlock()
				default:
				}
				continue
			}
			break
		}
	}
}

// Close terminates all subscriptions
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}

// Recv blocks for the next notification. missed is the number of updates
// dropped for this subscriber since its previous receive; ok is false once
// the bus is closed or the context cancelled.
func (s *Subscription) Recv(ctx context.Context) (marketID string, missed uint64, ok bool) {
	select {
	case id, open := <-s.ch:
		if !open {
			return "", 0, false
		}
		s.mu.Lock()
		missed = s.missed
		s.missed = 0
		s.mu.Unlock()
		return id, missed, true
	case <-ctx.Done():
		return "", 0, false
	}
}
