package service

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestApplyTax(t *testing.T) {
	s := &CheckoutService{taxRateBps: 1000}

	// 10% on a round subtotal
	assert.Equal(t, int64(1100), s.applyTax(1000))

	// rounding: 99 * 1.1 = 108.9 -> 109
	assert.Equal(t, int64(109), s.applyTax(99))

	// zero-rate service leaves the subtotal untouched
	free := &CheckoutService{taxRateBps: 0}
	assert.Equal(t, int64(1234), free.applyTax(1234))
}

func TestSubtotal(t *testing.T) {
	items := []models.OrderItem{
		{Price: 1000, Quantity: 2},
		{Price: 500, Quantity: 1},
	}
	assert.Equal(t, int64(2500), subtotal(items))
	assert.Equal(t, int64(0), subtotal(nil))
}

func TestMergeLines(t *testing.T) {
	merged := mergeLines([]CheckoutLine{
		{ProductID: 1, VariantID: 10, Quantity: 1},
		{ProductID: 2, VariantID: 20, Quantity: 3},
		{ProductID: 1, VariantID: 10, Quantity: 2},
	})

	assert.Len(t, merged, 2)
	assert.Equal(t, int64(10), merged[0].VariantID)
	assert.Equal(t, 3, merged[0].Quantity)
	assert.Equal(t, int64(20), merged[1].VariantID)
	assert.Equal(t, 3, merged[1].Quantity)
}

func TestCollectShortLines(t *testing.T) {
	variants := map[int64]models.ProductVariant{
		10: {ID: 10, ProductID: 1, Stock: 2, Price: 1000},
		20: {ID: 20, ProductID: 2, Stock: 5, Price: 500},
	}
	titles := map[int64]string{10: "Tee", 20: "Hoodie"}

	t.Run("all satisfiable", func(t *testing.T) {
		lines := []CheckoutLine{
			{ProductID: 1, VariantID: 10, Quantity: 2},
			{ProductID: 2, VariantID: 20, Quantity: 5},
		}
		assert.Empty(t, collectShortLines(lines, variants, titles))
	})

	t.Run("one short line rejects with detail", func(t *testing.T) {
		lines := []CheckoutLine{
			{ProductID: 1, VariantID: 10, Quantity: 3},
			{ProductID: 2, VariantID: 20, Quantity: 1},
		}
		shorts := collectShortLines(lines, variants, titles)
		assert.Len(t, shorts, 1)
		assert.Equal(t, int64(10), shorts[0].VariantID)
		assert.Equal(t, "Tee", shorts[0].Title)
		assert.Equal(t, 2, shorts[0].AvailableStock)
		assert.Equal(t, 3, shorts[0].Requested)
	})

	t.Run("unknown variant counts as zero stock", func(t *testing.T) {
		lines := []CheckoutLine{{ProductID: 9, VariantID: 99, Quantity: 1}}
		shorts := collectShortLines(lines, variants, titles)
		assert.Len(t, shorts, 1)
		assert.Equal(t, 0, shorts[0].AvailableStock)
	})

	t.Run("every short line is reported", func(t *testing.T) {
		lines := []CheckoutLine{
			{ProductID: 1, VariantID: 10, Quantity: 5},
			{ProductID: 2, VariantID: 20, Quantity: 50},
		}
		shorts := collectShortLines(lines, variants, titles)
		assert.Len(t, shorts, 2)
	})
}
