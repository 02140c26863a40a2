// Package query serves reads through the cache: a fresh entry is
// returned as-is, anything else is fetched from the API and stored.
// Authentication-required errors pass through untouched so callers can
// route them to a login prompt.
package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/cache"
	"github.com/example/storefront/internal/client"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
)

// API is the slice of the storefront client the handler reads through.
type API interface {
	GetCart(ctx context.Context) (*client.CartPayload, error)
	ListProducts(ctx context.Context) ([]product.Product, error)
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
}

type Handler struct {
	api   API
	store *cache.Store
	log   *zap.Logger
}

func NewHandler(api API, store *cache.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{api: api, store: store, log: log}
}

// GetCart returns the current cart, fetching when the entry is missing
// or stale.
func (h *Handler) GetCart(ctx context.Context) (client.CartPayload, error) {
	if cur, ok, stale := h.store.Lookup(cache.KeyCart); ok && !stale {
		if payload, isPayload := cur.(client.CartPayload); isPayload {
			return payload, nil
		}
	}

	fetched, err := h.api.GetCart(ctx)
	if err != nil {
		return client.CartPayload{}, err
	}
	h.store.Set(cache.KeyCart, *fetched)
	return *fetched, nil
}

func (h *Handler) ListProducts(ctx context.Context) ([]product.Product, error) {
	if cur, ok, stale := h.store.Lookup(cache.KeyProducts); ok && !stale {
		if list, isList := cur.([]product.Product); isList {
			return list, nil
		}
	}

	list, err := h.api.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	h.store.Set(cache.KeyProducts, list)
	return list, nil
}

func (h *Handler) GetProduct(ctx context.Context, id string) (product.Product, error) {
	key := cache.KeyProduct(id)
	if cur, ok, stale := h.store.Lookup(key); ok && !stale {
		if p, isProduct := cur.(product.Product); isProduct {
			return p, nil
		}
	}

	p, err := h.api.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	h.store.Set(key, *p)
	return *p, nil
}

func (h *Handler) GetOrder(ctx context.Context, id string) (order.Order, error) {
	key := cache.KeyOrder(id)
	if cur, ok, stale := h.store.Lookup(key); ok && !stale {
		if o, isOrder := cur.(order.Order); isOrder {
			return o, nil
		}
	}

	o, err := h.api.GetOrder(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	h.store.Set(key, *o)
	return *o, nil
}

func (h *Handler) ListOrders(ctx context.Context) ([]order.Order, error) {
	if cur, ok, stale := h.store.Lookup(cache.KeyOrders); ok && !stale {
		if list, isList := cur.([]order.Order); isList {
			return list, nil
		}
	}

	list, err := h.api.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	h.store.Set(cache.KeyOrders, list)
	return list, nil
}
