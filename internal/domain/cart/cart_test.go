package cart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/domain/product"
)

func itemFull(id string, qty int, price float64) CartItem {
	return CartItem{
		Product:  product.FullRef(product.Product{ID: id, Name: "Product " + id, Price: price}),
		Quantity: qty,
		Price:    price,
		Name:     "Product " + id,
	}
}

func itemRefOnly(id string, qty int, price float64) CartItem {
	return CartItem{Product: product.NewRef(id), Quantity: qty, Price: price}
}

// ============================================
// Quantity Bounds Tests
// ============================================

func TestValidQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		valid    bool
	}{
		{"minimum", 1, true},
		{"maximum", 99, true},
		{"middle", 50, true},
		{"zero", 0, false},
		{"negative", -3, false},
		{"just above maximum", 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidQuantity(tt.quantity))
		})
	}
}

// ============================================
// Total Consistency Tests
// ============================================

func TestCart_TotalPriceRecomputedByEveryPatch(t *testing.T) {
	c := Empty()

	c = c.WithItemAdded(itemFull("p1", 2, 25))
	assert.Equal(t, c.Total(), c.TotalPrice)
	assert.Equal(t, 50.0, c.TotalPrice)

	c = c.WithItemAdded(itemFull("p2", 1, 10))
	assert.Equal(t, c.Total(), c.TotalPrice)
	assert.Equal(t, 60.0, c.TotalPrice)

	c, ok := c.WithQuantity("p1", 3)
	require.True(t, ok)
	assert.Equal(t, c.Total(), c.TotalPrice)
	assert.Equal(t, 85.0, c.TotalPrice)

	c = c.WithoutItem("p2")
	assert.Equal(t, c.Total(), c.TotalPrice)
	assert.Equal(t, 75.0, c.TotalPrice)

	c = c.Cleared()
	assert.Empty(t, c.Items)
	assert.Equal(t, 0.0, c.TotalPrice)
}

func TestCart_AddMergesExistingProduct(t *testing.T) {
	c := Empty().WithItemAdded(itemFull("p1", 2, 25))
	c = c.WithItemAdded(itemFull("p1", 3, 25))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 125.0, c.TotalPrice)
}

// ============================================
// Copy-On-Write Tests
// ============================================

func TestCart_PatchesDoNotMutatePriorSnapshot(t *testing.T) {
	before := Empty().WithItemAdded(itemFull("p1", 1, 25))

	after, ok := before.WithQuantity("p1", 3)
	require.True(t, ok)

	assert.Equal(t, 1, before.Items[0].Quantity)
	assert.Equal(t, 25.0, before.TotalPrice)
	assert.Equal(t, 3, after.Items[0].Quantity)
	assert.Equal(t, 75.0, after.TotalPrice)
}

func TestCart_RemoveDoesNotMutatePriorSnapshot(t *testing.T) {
	before := Empty().
		WithItemAdded(itemFull("p1", 1, 10)).
		WithItemAdded(itemFull("p2", 1, 20))

	after := before.WithoutItem("p1")

	assert.Len(t, before.Items, 2)
	assert.Equal(t, 30.0, before.TotalPrice)
	assert.Len(t, after.Items, 1)
	assert.Equal(t, 20.0, after.TotalPrice)
}

// ============================================
// Dual-Reference Matching Tests
// ============================================

func TestCart_RemoveMatchesBothReferenceForms(t *testing.T) {
	tests := []struct {
		name string
		item CartItem
	}{
		{"populated product object", itemFull("p1", 2, 25)},
		{"bare ID reference", itemRefOnly("p1", 2, 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Cart{Items: []CartItem{tt.item}, TotalPrice: 50}
			c = c.WithoutItem("p1")
			assert.Empty(t, c.Items)
			assert.Equal(t, 0.0, c.TotalPrice)
		})
	}
}

func TestCart_UpdateMatchesBothReferenceForms(t *testing.T) {
	for _, item := range []CartItem{itemFull("p1", 1, 25), itemRefOnly("p1", 1, 25)} {
		c := Cart{Items: []CartItem{item}, TotalPrice: 25}
		next, ok := c.WithQuantity("p1", 3)
		require.True(t, ok)
		assert.Equal(t, 3, next.Items[0].Quantity)
		assert.Equal(t, 75.0, next.TotalPrice)
	}
}

func TestCart_UpdateUnknownProductLeavesCartUntouched(t *testing.T) {
	c := Empty().WithItemAdded(itemFull("p1", 1, 25))
	next, ok := c.WithQuantity("missing", 3)
	assert.False(t, ok)
	assert.Equal(t, c, next)
}

func TestCart_RemoveUnknownProductLeavesCartUntouched(t *testing.T) {
	c := Empty().WithItemAdded(itemFull("p1", 1, 25))
	assert.Equal(t, c, c.WithoutItem("missing"))
}

// ============================================
// Wire Format Tests
// ============================================

func TestCart_DecodesBothProductForms(t *testing.T) {
	raw := `{
		"items": [
			{"product": {"_id": "p1", "name": "Bottle", "price": 25}, "quantity": 2, "price": 25},
			{"product": "p2", "quantity": 1, "price": 10}
		],
		"totalPrice": 60
	}`

	var c Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	require.Len(t, c.Items, 2)

	assert.True(t, c.Items[0].Product.IsFull())
	assert.True(t, c.Items[0].Product.Matches("p1"))
	assert.Equal(t, "Bottle", c.Items[0].Product.Product.Name)

	assert.False(t, c.Items[1].Product.IsFull())
	assert.True(t, c.Items[1].Product.Matches("p2"))

	assert.Equal(t, 60.0, c.TotalPrice)
	assert.Equal(t, c.Total(), c.TotalPrice)
}

func TestCart_ItemCount(t *testing.T) {
	c := Empty().
		WithItemAdded(itemFull("p1", 2, 10)).
		WithItemAdded(itemFull("p2", 3, 5))
	assert.Equal(t, 5, c.ItemCount())
	assert.Equal(t, 0, Empty().ItemCount())
}
