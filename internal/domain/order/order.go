package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/product"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentMethod selects how an order is paid.
type PaymentMethod string

const (
	MethodCard PaymentMethod = "card"
	MethodCOD  PaymentMethod = "cod"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyOrder      = errors.New("order must have at least one item")
	ErrInvalidStatus   = errors.New("invalid order status transition")
	ErrNotCancellable  = errors.New("order can no longer be cancelled")
	ErrInvalidShipping = errors.New("invalid shipping address")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

// OrderItem is a frozen cart line. Orders snapshot the cart at checkout;
// the item list never changes afterwards.
type OrderItem struct {
	Product  product.Ref `json:"product"`
	Quantity int         `json:"quantity"`
	Price    float64     `json:"price"`
	Name     string      `json:"name,omitempty"`
	Image    string      `json:"image,omitempty"`
}

// StatusChange is one entry of the append-only status history.
type StatusChange struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}

// ShippingAddress is collected at checkout and validated before any
// network call is made.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Validate checks the required shipping fields.
func (a ShippingAddress) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"fullName", a.FullName},
		{"line1", a.Line1},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidShipping, strings.Join(missing, ", "))
	}
	return nil
}

// Order mirrors the server's order document.
type Order struct {
	ID              string          `json:"_id"`
	Items           []OrderItem     `json:"items"`
	TotalPrice      float64         `json:"totalPrice"`
	Status          Status          `json:"orderStatus"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod,omitempty"`
	StatusHistory   []StatusChange  `json:"statusHistory"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// CanCancel reports whether the order is still cancellable.
func (o *Order) CanCancel() bool {
	return o.CanTransitionTo(StatusCancelled)
}

// WithStatus returns a copy of the order moved to target with a history
// entry appended. The item list is shared; it is immutable by contract.
func (o Order) WithStatus(target Status, note string, at time.Time) (Order, error) {
	if !o.CanTransitionTo(target) {
		return o, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
	history := make([]StatusChange, len(o.StatusHistory), len(o.StatusHistory)+1)
	copy(history, o.StatusHistory)
	o.StatusHistory = append(history, StatusChange{Status: target, Note: note, ChangedAt: at})
	o.Status = target
	o.UpdatedAt = at
	return o, nil
}
