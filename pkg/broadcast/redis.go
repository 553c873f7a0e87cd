package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster fans events out through Redis Pub/Sub so that every
// process instance sees publishes from every other instance. Events are
// serialized as JSON on the wire. The broadcaster does not own the client;
// the caller manages its lifecycle.
type RedisBroadcaster struct {
	client     *redis.Client
	bufferSize int
	mu         sync.Mutex
	subs       map[*redisSubscriber]struct{}
	closed     bool
	wg         sync.WaitGroup
}

// NewRedisBroadcaster wraps an existing Redis client. bufferSize is the
// per-subscriber buffer; a minimum of 1 is enforced.
func NewRedisBroadcaster(client *redis.Client, bufferSize int) *RedisBroadcaster {
	return &RedisBroadcaster{
		client:     client,
		bufferSize: max(bufferSize, 1),
		subs:       make(map[*redisSubscriber]struct{}),
	}
}

// Publish sends the event to the Redis channel. Redis delivers it to every
// connected subscriber across all instances; there is no persistence, so
// channels without subscribers discard the event.
func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, evt Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("broadcast: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("broadcast: redis publish to %q: %w", channel, err)
	}
	return nil
}

// Subscribe opens a Redis subscription on the channel and pumps decoded
// events to the returned Subscriber until ctx is cancelled, the subscriber
// is closed, or the broadcaster shuts down. Undecodable messages are
// skipped.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, channel string) (Subscriber, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.mu.Unlock()

	pubsub := b.client.Subscribe(ctx, channel)

	// Wait for the subscription confirmation so callers never miss events
	// published right after Subscribe returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("broadcast: redis subscribe to %q: %w", channel, err)
	}

	sub := &redisSubscriber{
		ch:     make(chan Event, b.bufferSize),
		pubsub: pubsub,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, ErrClosed
	}
	b.subs[sub] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer close(sub.ch)
		defer func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		}()

		src := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case sub.ch <- evt:
				default:
					// Slow consumer: drop the event, keep the subscription.
				}
			}
		}
	}()

	return sub, nil
}

// Close stops accepting publishes, closes every open subscriber, and waits
// for their pumps to finish. The underlying Redis client stays open.
func (b *RedisBroadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscriber, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	// Closing a subscriber's PubSub closes its message channel, which ends
	// the pump goroutine, so the Wait below cannot block on live streams.
	for _, sub := range subs {
		sub.Close()
	}

	b.wg.Wait()
	return nil
}

type redisSubscriber struct {
	ch     chan Event
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *redisSubscriber) Events() <-chan Event { return s.ch }

func (s *redisSubscriber) Close() {
	s.once.Do(func() {
		// Closing the PubSub closes its message channel, which ends the pump
		// goroutine and closes the Events channel.
		_ = s.pubsub.Close()
	})
}
