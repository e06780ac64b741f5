package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"
)

// variantReader resolves purchasable variants. *store.Store satisfies it.
type variantReader interface {
	GetVariantsByIDs(ctx context.Context, ids []int64) (map[int64]models.ProductVariant, map[int64]string, error)
}

// cartStorage holds per-user carts. *redisclient.Client satisfies it.
type cartStorage interface {
	GetCart(ctx context.Context, userID int64) ([]models.CartItem, error)
	SetCartItem(ctx context.Context, userID int64, item models.CartItem) error
	ClearCart(ctx context.Context, userID int64) error
}

// CartService keeps per-user carts in redis. Carts are advisory: stock is
// only checked and held at checkout time.
type CartService struct {
	store variantReader
	redis cartStorage
}

// NewCartService creates a new cart service
func NewCartService(store variantReader, redis cartStorage) *CartService {
	return &CartService{store: store, redis: redis}
}

// Get returns the user's cart
func (s *CartService) Get(ctx context.Context, userID int64) ([]models.CartItem, error) {
	return s.redis.GetCart(ctx, userID)
}

// SetItem upserts one cart line after checking the variant is a live,
// purchasable configuration of the named product. Quantity zero removes
// the line.
func (s *CartService) SetItem(ctx context.Context, userID int64, item models.CartItem) error {
	ctx, span := util.StartSpan(ctx, "CartService.SetItem")
	defer span.End()

	if item.Quantity > 0 {
		variants, _, err := s.store.GetVariantsByIDs(ctx, []int64{item.VariantID})
		if err != nil {
			return err
		}
		variant, ok := variants[item.VariantID]
		if !ok {
			return models.ErrNotFound
		}
		if variant.ProductID != item.ProductID {
			return fmt.Errorf("%w: variant %d, product %d", models.ErrVariantMismatch, item.VariantID, item.ProductID)
		}
	}

	return s.redis.SetCartItem(ctx, userID, item)
}

// Clear empties the user's cart
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	return s.redis.ClearCart(ctx, userID)
}
