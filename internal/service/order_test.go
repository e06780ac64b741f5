package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	order       *models.Order
	user        *models.User
	processed   map[string]string
	checkFails  int
	transitions int
}

func newFakeOrderStore(order *models.Order) *fakeOrderStore {
	return &fakeOrderStore{
		order:     order,
		user:      &models.User{ID: 1, Email: "buyer@example.com"},
		processed: map[string]string{},
	}
}

func (f *fakeOrderStore) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, models.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeOrderStore) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if f.order == nil || f.order.CheckoutSessionID != sessionID {
		return nil, models.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeOrderStore) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return nil, nil
}

func (f *fakeOrderStore) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) ListOrders(ctx context.Context, page, pageSize int) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeOrderStore) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	return f.user, nil
}

func (f *fakeOrderStore) GetLatestOrderSummary(ctx context.Context) (*models.OrderSummary, error) {
	return nil, models.ErrNotFound
}

func (f *fakeOrderStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	if f.checkFails > 0 {
		f.checkFails--
		return false, errors.New("connection reset")
	}
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeOrderStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	f.processed[eventID] = eventType
	return nil
}

func (f *fakeOrderStore) TransitionOrderStatus(ctx context.Context, orderID int64, from, to string) error {
	if f.order == nil || f.order.ID != orderID || f.order.Status != from {
		return models.ErrInvalidTransition
	}
	f.order.Status = to
	f.transitions++
	return nil
}

type fakeDeduper struct {
	seen  map[string]bool
	marks int
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func (f *fakeDeduper) IsEventSeen(ctx context.Context, eventID string) (bool, error) {
	return f.seen[eventID], nil
}

func (f *fakeDeduper) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) error {
	f.seen[eventID] = true
	f.marks++
	return nil
}

type fakePublisher struct {
	fulfilled, failed, shipped int
}

func (f *fakePublisher) PublishOrderFulfilled(ctx context.Context, event *models.OrderFulfilledEvent) error {
	f.fulfilled++
	return nil
}

func (f *fakePublisher) PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error {
	f.failed++
	return nil
}

func (f *fakePublisher) PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error {
	f.shipped++
	return nil
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:                7,
		OrderNumber:       1042,
		UserID:            1,
		Amount:            3300,
		Status:            models.OrderStatusPending,
		CheckoutSessionID: "cs_live_7",
	}
}

func completedEvent(id string) *payment.WebhookEvent {
	return &payment.WebhookEvent{
		ID:   id,
		Type: payment.EventCheckoutCompleted,
		Data: payment.WebhookEventData{SessionID: "cs_live_7"},
	}
}

func TestWebhookCompletedFulfillsOrder(t *testing.T) {
	st := newFakeOrderStore(pendingOrder())
	dedup := newFakeDeduper()
	pub := &fakePublisher{}
	svc := NewOrderService(st, dedup, pub)

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), completedEvent("evt_1")))

	assert.Equal(t, models.OrderStatusFulfilled, st.order.Status)
	assert.Equal(t, 1, pub.fulfilled)
	assert.Contains(t, st.processed, "evt_1")
	assert.True(t, dedup.seen["evt_1"], "dedup key written after processing")
}

func TestWebhookReplayIsNoOp(t *testing.T) {
	st := newFakeOrderStore(pendingOrder())
	dedup := newFakeDeduper()
	pub := &fakePublisher{}
	svc := NewOrderService(st, dedup, pub)

	event := completedEvent("evt_replay")
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))

	assert.Equal(t, 1, st.transitions, "second delivery must not reapply")
	assert.Equal(t, 1, pub.fulfilled)
	assert.Equal(t, 1, dedup.marks)
}

func TestWebhookReplayFallsBackToProcessedTable(t *testing.T) {
	st := newFakeOrderStore(pendingOrder())
	dedup := newFakeDeduper()
	pub := &fakePublisher{}
	svc := NewOrderService(st, dedup, pub)

	event := completedEvent("evt_cold")
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))

	// Redis forgot the key (restart, TTL); the processed_events check
	// still stops the replay.
	dedup.seen = map[string]bool{}
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, 1, st.transitions)
	assert.Equal(t, 1, pub.fulfilled)
}

func TestWebhookRetryAfterTransientFailure(t *testing.T) {
	st := newFakeOrderStore(pendingOrder())
	st.checkFails = 1
	dedup := newFakeDeduper()
	pub := &fakePublisher{}
	svc := NewOrderService(st, dedup, pub)

	event := completedEvent("evt_retry")

	// First delivery dies on a transient DB error. Nothing may be
	// recorded in the dedup fast path, or the provider's retry would be
	// answered 200 with the order stuck PENDING.
	require.Error(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.False(t, dedup.seen["evt_retry"])
	assert.Equal(t, models.OrderStatusPending, st.order.Status)

	// The retry gets through and applies the event.
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, models.OrderStatusFulfilled, st.order.Status)
	assert.Equal(t, 1, pub.fulfilled)
	assert.True(t, dedup.seen["evt_retry"])
}

func TestWebhookExpiredFailsOrder(t *testing.T) {
	st := newFakeOrderStore(pendingOrder())
	dedup := newFakeDeduper()
	pub := &fakePublisher{}
	svc := NewOrderService(st, dedup, pub)

	var notified []string
	svc.SetStatusListener(func(orderID, orderNumber int64, status string) {
		notified = append(notified, status)
	})

	err := svc.HandleWebhookEvent(context.Background(), &payment.WebhookEvent{
		ID:   "evt_exp",
		Type: payment.EventCheckoutExpired,
		Data: payment.WebhookEventData{SessionID: "cs_live_7"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusFailed, st.order.Status)
	assert.Equal(t, 1, pub.failed)
	assert.Equal(t, []string{models.OrderStatusFailed}, notified)
}

func TestWebhookUnknownSessionIsSwallowed(t *testing.T) {
	st := newFakeOrderStore(nil)
	dedup := newFakeDeduper()
	pub := &fakePublisher{}
	svc := NewOrderService(st, dedup, pub)

	event := completedEvent("evt_orphan")
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))

	assert.Zero(t, st.transitions)
	assert.Contains(t, st.processed, "evt_orphan", "orphan events marked so replays short-circuit")
}

func TestShipRequiresFulfilledOrder(t *testing.T) {
	order := pendingOrder()
	st := newFakeOrderStore(order)
	svc := NewOrderService(st, newFakeDeduper(), &fakePublisher{})

	_, err := svc.Ship(context.Background(), order.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	order.Status = models.OrderStatusFulfilled
	shipped, err := svc.Ship(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)

	_, err = svc.Ship(context.Background(), order.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}
