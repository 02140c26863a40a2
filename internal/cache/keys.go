package cache

// Cache keys are the endpoint path plus any arguments, matching how the
// server's resources are addressed. One key per distinct query.

const (
	KeyCart     = "cart"
	KeyProducts = "products"
	KeyOrders   = "orders"
)

func KeyProduct(id string) string {
	return "products/" + id
}

func KeyOrder(id string) string {
	return "orders/" + id
}
