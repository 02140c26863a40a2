package command

import "github.com/example/storefront/internal/domain/order"

// Cart Commands
type AddToCart struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	ProductID string `json:"product_id"`
}

type ClearCart struct{}

// Order Commands
type PlaceOrder struct {
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	Notes           string                `json:"notes"`
}

type CancelOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}
