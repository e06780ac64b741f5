package service

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVariantReader struct {
	variants map[int64]models.ProductVariant
}

func (f *fakeVariantReader) GetVariantsByIDs(ctx context.Context, ids []int64) (map[int64]models.ProductVariant, map[int64]string, error) {
	out := map[int64]models.ProductVariant{}
	titles := map[int64]string{}
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out[id] = v
			titles[id] = "Tee"
		}
	}
	return out, titles, nil
}

type fakeCartStorage struct {
	items map[int64]models.CartItem
}

func newFakeCartStorage() *fakeCartStorage {
	return &fakeCartStorage{items: map[int64]models.CartItem{}}
}

func (f *fakeCartStorage) GetCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	out := make([]models.CartItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeCartStorage) SetCartItem(ctx context.Context, userID int64, item models.CartItem) error {
	if item.Quantity <= 0 {
		delete(f.items, item.VariantID)
		return nil
	}
	f.items[item.VariantID] = item
	return nil
}

func (f *fakeCartStorage) ClearCart(ctx context.Context, userID int64) error {
	f.items = map[int64]models.CartItem{}
	return nil
}

func newTestCartService() (*CartService, *fakeCartStorage) {
	reader := &fakeVariantReader{variants: map[int64]models.ProductVariant{
		10: {ID: 10, ProductID: 1, Color: "Black", Size: "M", Price: 1500, Stock: 5},
	}}
	storage := newFakeCartStorage()
	return NewCartService(reader, storage), storage
}

func TestSetItemRejectsForeignVariant(t *testing.T) {
	svc, storage := newTestCartService()

	err := svc.SetItem(context.Background(), 1, models.CartItem{ProductID: 2, VariantID: 10, Quantity: 1})
	assert.ErrorIs(t, err, models.ErrVariantMismatch)
	assert.Empty(t, storage.items, "rejected line must not be stored")
}

func TestSetItemRejectsUnknownVariant(t *testing.T) {
	svc, storage := newTestCartService()

	err := svc.SetItem(context.Background(), 1, models.CartItem{ProductID: 1, VariantID: 99, Quantity: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, storage.items)
}

func TestSetItemZeroQuantityRemovesLine(t *testing.T) {
	svc, storage := newTestCartService()

	require.NoError(t, svc.SetItem(context.Background(), 1, models.CartItem{ProductID: 1, VariantID: 10, Quantity: 2}))
	require.Len(t, storage.items, 1)

	// Removal skips variant validation so stale lines can always be
	// cleared, even after the variant is soft-deleted.
	require.NoError(t, svc.SetItem(context.Background(), 1, models.CartItem{ProductID: 1, VariantID: 10, Quantity: 0}))
	assert.Empty(t, storage.items)
}
