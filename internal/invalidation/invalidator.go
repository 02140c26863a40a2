// Package invalidation turns backend domain events into cache
// invalidations. The storefront backend publishes an event per
// aggregate change; consuming them lets this client mark entries stale
// the moment the server's truth moves, instead of waiting for the next
// mutation round trip.
package invalidation

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/cache"
)

// Aggregate types carried in the backend's event envelope.
const (
	AggregateCart    = "Cart"
	AggregateOrder   = "Order"
	AggregateProduct = "Product"
)

// Event is the backend's event envelope; only the routing fields matter
// here, the payload stays opaque.
type Event struct {
	AggregateID   string `json:"aggregate_id"`
	AggregateType string `json:"aggregate_type"`
	EventType     string `json:"event_type"`
}

type Invalidator struct {
	store *cache.Store
	log   *zap.Logger
}

func NewInvalidator(store *cache.Store, log *zap.Logger) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invalidator{store: store, log: log}
}

// HandleEvent decodes one message and invalidates the affected cache
// keys. Unknown aggregate types are ignored.
func (i *Invalidator) HandleEvent(ctx context.Context, key, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	i.log.Debug("backend event received",
		zap.String("event_type", event.EventType),
		zap.String("aggregate_type", event.AggregateType))

	switch event.AggregateType {
	case AggregateCart:
		i.store.Invalidate(cache.KeyCart)
	case AggregateOrder:
		i.store.Invalidate(cache.KeyOrder(event.AggregateID))
		i.store.Invalidate(cache.KeyOrders)
	case AggregateProduct:
		i.store.Invalidate(cache.KeyProduct(event.AggregateID))
		i.store.Invalidate(cache.KeyProducts)
	}

	return nil
}
