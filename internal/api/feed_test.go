package api

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderFeedBroadcast(t *testing.T) {
	feed := NewOrderFeed()
	ch := feed.subscribe()
	defer feed.unsubscribe(ch)

	feed.Broadcast(7, 1007, models.OrderStatusFulfilled)

	select {
	case msg := <-ch:
		assert.Equal(t, int64(7), msg.OrderID)
		assert.Equal(t, int64(1007), msg.OrderNumber)
		assert.Equal(t, models.OrderStatusFulfilled, msg.Status)
	default:
		t.Fatal("expected a buffered feed message")
	}
}

func TestOrderFeedDropsSlowSubscribers(t *testing.T) {
	feed := NewOrderFeed()
	ch := feed.subscribe()

	// Fill the buffer and overflow it; the subscriber gets dropped instead
	// of blocking the broadcaster.
	for i := 0; i < cap(ch)+1; i++ {
		feed.Broadcast(int64(i), int64(1000+i), models.OrderStatusFulfilled)
	}

	drained := 0
	for range ch {
		drained++
	}
	require.Equal(t, cap(ch), drained, "channel closed after overflow")

	// unsubscribing an already-dropped channel must not panic
	feed.unsubscribe(ch)
}
