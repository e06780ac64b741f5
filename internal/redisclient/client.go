package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}

// GetCart returns all items in a user's cart
func (c *Client) GetCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	fields, err := c.rdb.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(fields))
	for _, raw := range fields {
		var item models.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("corrupt cart entry: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// SetCartItem upserts one cart line, keyed by variant. Quantity zero
// removes the line.
func (c *Client) SetCartItem(ctx context.Context, userID int64, item models.CartItem) error {
	field := strconv.FormatInt(item.VariantID, 10)
	if item.Quantity <= 0 {
		return c.rdb.HDel(ctx, cartKey(userID), field).Err()
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.rdb.HSet(ctx, cartKey(userID), field, raw).Err()
}

// ClearCart removes the whole cart
func (c *Client) ClearCart(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, cartKey(userID)).Err()
}

func webhookEventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

// IsEventSeen reports whether a webhook event id was already fully
// processed. Fast path in front of the processed_events table; losing the
// redis entry only costs a database round trip.
func (c *Client) IsEventSeen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, webhookEventKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkEventSeen records a processed webhook event id with a TTL. Written
// only after the event has been applied and persisted, so a retry of a
// half-processed event is never shadowed by the fast path.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, webhookEventKey(eventID), "1", ttl).Err()
}
