package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/domainboard/pkg/broadcast"
)

func collect(t *testing.T, sub broadcast.Subscriber, n int) []broadcast.Event {
	t.Helper()

	out := make([]broadcast.Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case evt, ok := <-sub.Events():
			require.True(t, ok, "subscriber closed before receiving %d events", n)
			out = append(out, evt)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(out))
		}
	}
	return out
}

func TestMemoryBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("delivers only to the event's channel", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster(8)
		defer b.Close()

		ctx := context.Background()
		subA, err := b.Subscribe(ctx, "tenant-42")
		require.NoError(t, err)
		subB, err := b.Subscribe(ctx, "tenant-7")
		require.NoError(t, err)

		evt, err := broadcast.NewEvent("domain-added", map[string]string{"name": "acme"})
		require.NoError(t, err)
		require.NoError(t, b.Publish(ctx, "tenant-42", evt))

		got := collect(t, subA, 1)
		assert.Equal(t, "domain-added", got[0].Type)
		assert.JSONEq(t, `{"name":"acme"}`, string(got[0].Payload))

		select {
		case evt := <-subB.Events():
			t.Fatalf("tenant-7 subscriber received foreign event %+v", evt)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("preserves publish order per channel", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster(16)
		defer b.Close()

		ctx := context.Background()
		sub, err := b.Subscribe(ctx, "tenant-1")
		require.NoError(t, err)

		for _, typ := range []string{"first", "second", "third"} {
			evt, err := broadcast.NewEvent(typ, nil)
			require.NoError(t, err)
			require.NoError(t, b.Publish(ctx, "tenant-1", evt))
		}

		got := collect(t, sub, 3)
		assert.Equal(t, "first", got[0].Type)
		assert.Equal(t, "second", got[1].Type)
		assert.Equal(t, "third", got[2].Type)
	})

	t.Run("all channel subscribers receive the event", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster(8)
		defer b.Close()

		ctx := context.Background()
		sub1, err := b.Subscribe(ctx, "tenant-9")
		require.NoError(t, err)
		sub2, err := b.Subscribe(ctx, "tenant-9")
		require.NoError(t, err)

		evt, err := broadcast.NewEvent("domain-added", nil)
		require.NoError(t, err)
		require.NoError(t, b.Publish(ctx, "tenant-9", evt))

		assert.Len(t, collect(t, sub1, 1), 1)
		assert.Len(t, collect(t, sub2, 1), 1)
	})

	t.Run("publish to channel without subscribers is a no-op", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster(1)
		defer b.Close()

		evt, err := broadcast.NewEvent("domain-added", nil)
		require.NoError(t, err)
		assert.NoError(t, b.Publish(context.Background(), "tenant-empty", evt))
	})

	t.Run("context cancellation ends the subscription", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster(1)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub, err := b.Subscribe(ctx, "tenant-2")
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok, "events channel should be closed")
		case <-time.After(2 * time.Second):
			t.Fatal("subscription not cleaned up after context cancellation")
		}
	})

	t.Run("close shuts down all subscribers", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster(1)
		sub, err := b.Subscribe(context.Background(), "tenant-3")
		require.NoError(t, err)

		require.NoError(t, b.Close())

		_, ok := <-sub.Events()
		assert.False(t, ok)

		_, err = b.Subscribe(context.Background(), "tenant-3")
		assert.ErrorIs(t, err, broadcast.ErrClosed)

		evt, err := broadcast.NewEvent("domain-added", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, b.Publish(context.Background(), "tenant-3", evt), broadcast.ErrClosed)
	})

	t.Run("slow consumer does not block publisher", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster(1)
		defer b.Close()

		ctx := context.Background()
		_, err := b.Subscribe(ctx, "tenant-4")
		require.NoError(t, err)

		// Nobody drains the subscriber; publishes past its buffer must not
		// block.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for range 10 {
				evt, _ := broadcast.NewEvent("domain-added", nil)
				_ = b.Publish(ctx, "tenant-4", evt)
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("publisher blocked on slow consumer")
		}
	})
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	t.Run("marshals payload", func(t *testing.T) {
		t.Parallel()
		evt, err := broadcast.NewEvent("domain-added", map[string]int{"n": 1})
		require.NoError(t, err)
		assert.Equal(t, "domain-added", evt.Type)
		assert.JSONEq(t, `{"n":1}`, string(evt.Payload))
	})

	t.Run("unmarshalable payload fails", func(t *testing.T) {
		t.Parallel()
		_, err := broadcast.NewEvent("bad", make(chan int))
		require.Error(t, err)
	})
}
