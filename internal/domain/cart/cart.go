package cart

import (
	"errors"

	"github.com/example/storefront/internal/domain/product"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	ErrInvalidProduct  = errors.New("product id is required")
	ErrItemNotFound    = errors.New("item not in cart")
)

// CartItem is one line of the cart. Product may arrive populated or as a
// bare ID; product.Ref absorbs both forms.
type CartItem struct {
	Product  product.Ref `json:"product"`
	Quantity int         `json:"quantity"`
	Price    float64     `json:"price"`
	Name     string      `json:"name,omitempty"`
	Image    string      `json:"image,omitempty"`
}

// Cart mirrors the server's cart document. TotalPrice is derived: every
// function in this package that changes Items recomputes it in the same
// step, so a cart snapshot is never internally inconsistent.
type Cart struct {
	Items      []CartItem `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
}

// Empty returns a cart with no items and a zero total.
func Empty() Cart {
	return Cart{Items: []CartItem{}}
}

// ValidQuantity reports whether q is inside the allowed range.
func ValidQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}

// Total sums price × quantity over all items.
func (c Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ItemCount sums the quantities of all items.
func (c Cart) ItemCount() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Find returns the index of the item matching productID, or -1.
func (c Cart) Find(productID string) int {
	for i, item := range c.Items {
		if item.Product.Matches(productID) {
			return i
		}
	}
	return -1
}

// clone copies the item slice so patches never alias the previous snapshot.
func (c Cart) clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}

// WithItemAdded returns a new cart with item added, merging quantities when
// the product is already present (the server does the same on POST).
func (c Cart) WithItemAdded(item CartItem) Cart {
	next := c.clone()
	if i := next.Find(item.Product.ID); i >= 0 {
		next.Items[i].Quantity += item.Quantity
		next.Items[i].Price = item.Price
	} else {
		next.Items = append(next.Items, item)
	}
	next.TotalPrice = next.Total()
	return next
}

// WithQuantity returns a new cart with the matching item's quantity set.
// The bool is false when no item matches productID.
func (c Cart) WithQuantity(productID string, quantity int) (Cart, bool) {
	i := c.Find(productID)
	if i < 0 {
		return c, false
	}
	next := c.clone()
	next.Items[i].Quantity = quantity
	next.TotalPrice = next.Total()
	return next, true
}

// WithoutItem returns a new cart with the matching item removed. Removing
// an absent product returns the cart unchanged.
func (c Cart) WithoutItem(productID string) Cart {
	i := c.Find(productID)
	if i < 0 {
		return c
	}
	next := c.clone()
	next.Items = append(next.Items[:i:i], next.Items[i+1:]...)
	next.TotalPrice = next.Total()
	return next
}

// Cleared returns an empty cart.
func (c Cart) Cleared() Cart {
	return Empty()
}
