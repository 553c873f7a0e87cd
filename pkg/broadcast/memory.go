package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster is an in-process Broadcaster keyed by channel name.
// Suitable for single-instance deployments and tests; use RedisBroadcaster
// when several instances must see the same events.
type MemoryBroadcaster struct {
	channels   map[string]map[*memorySubscriber]struct{}
	bufferSize int
	closed     bool
	mu         sync.RWMutex
	cleanupWg  sync.WaitGroup
}

// NewMemoryBroadcaster creates an in-memory broadcaster. bufferSize is the
// per-subscriber channel buffer; a minimum of 1 is enforced so sends stay
// non-blocking.
func NewMemoryBroadcaster(bufferSize int) *MemoryBroadcaster {
	return &MemoryBroadcaster{
		channels:   make(map[string]map[*memorySubscriber]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

type memorySubscriber struct {
	ch      chan Event
	done    chan struct{}
	channel string
	parent  *MemoryBroadcaster
	closed  bool
	mu      sync.Mutex
	once    sync.Once
}

func (s *memorySubscriber) Events() <-chan Event { return s.ch }

func (s *memorySubscriber) Close() {
	s.once.Do(func() {
		s.parent.remove(s)
	})
}

// send attempts a non-blocking delivery. Returns false when the subscriber
// is closed or its buffer is full.
func (s *memorySubscriber) send(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

func (s *memorySubscriber) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
		close(s.done)
	}
}

// Subscribe connects to a channel. The subscription is cleaned up when ctx
// is cancelled. A closed broadcaster returns ErrClosed.
func (b *MemoryBroadcaster) Subscribe(ctx context.Context, channel string) (Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &memorySubscriber{
		ch:      make(chan Event, b.bufferSize),
		done:    make(chan struct{}),
		channel: channel,
		parent:  b,
	}

	subs, ok := b.channels[channel]
	if !ok {
		subs = make(map[*memorySubscriber]struct{})
		b.channels[channel] = subs
	}
	subs[sub] = struct{}{}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			select {
			case <-ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}

	return sub, nil
}

// Publish delivers the event to every subscriber of the channel. Subscribers
// whose buffers are full are dropped rather than blocking the publisher.
func (b *MemoryBroadcaster) Publish(ctx context.Context, channel string, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for sub := range b.channels[channel] {
		if !sub.send(evt) {
			// Removal takes the write lock, so it runs outside this publish.
			go sub.Close()
		}
	}

	return nil
}

// Close shuts down the broadcaster and closes every subscriber.
// Safe to call multiple times.
func (b *MemoryBroadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	for _, subs := range b.channels {
		for sub := range subs {
			sub.shutdown()
		}
	}
	clear(b.channels)
	b.mu.Unlock()

	b.cleanupWg.Wait()
	return nil
}

func (b *MemoryBroadcaster) remove(sub *memorySubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.channels[sub.channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.channels, sub.channel)
		}
	}
	sub.shutdown()
}
