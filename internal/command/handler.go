// Package command executes cart and order mutations with optimistic
// cache patches: the relevant cache entry is patched synchronously, the
// network call goes out, and the patch is committed (entry marked stale
// for reconciliation) on success or exactly undone on failure. All cart
// mutation funnels through this handler; view code never writes to the
// cache directly.
package command

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/cache"
	"github.com/example/storefront/internal/client"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
)

// API is the slice of the storefront client the handler mutates through.
type API interface {
	GetCart(ctx context.Context) (*client.CartPayload, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (*cart.Cart, error)
	UpdateCartItem(ctx context.Context, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, productID string) error
	ClearCart(ctx context.Context) error
	CreateOrder(ctx context.Context, addr order.ShippingAddress, notes string) (*order.Order, error)
	CancelOrder(ctx context.Context, id, reason string) error
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

// AddToCart adds an item to the cart. The optimistic line item is built
// from the cached product; when no patch could be applied the server's
// cart response is stored directly so reads never keep serving the
// pre-mutation snapshot.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	if cmd.ProductID == "" {
		return cart.ErrInvalidProduct
	}
	if !cart.ValidQuantity(cmd.Quantity) {
		return cart.ErrInvalidQuantity
	}

	tx := h.store.Begin(cache.KeyCart)
	patched := false
	if p := h.cachedProduct(cmd.ProductID); p != nil {
		item := cart.CartItem{
			Product:  product.FullRef(*p),
			Quantity: cmd.Quantity,
			Price:    p.Price,
			Name:     p.Name,
			Image:    p.Image,
		}
		patched = tx.Patch(func(cur any) any {
			payload, ok := cur.(client.CartPayload)
			if !ok {
				return cur
			}
			payload.Cart = payload.Cart.WithItemAdded(item)
			payload.ItemCount = payload.Cart.ItemCount()
			return payload
		})
	}

	updated, err := h.api.AddCartItem(ctx, cmd.ProductID, cmd.Quantity)
	if err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	if !patched {
		// Commit had no patch to mark for reconciliation, yet the server's
		// cart has changed; its response is the fresh value.
		h.store.Set(cache.KeyCart, client.CartPayload{Cart: *updated, ItemCount: updated.ItemCount()})
	}
	h.log.Debug("item added to cart",
		zap.String("product_id", cmd.ProductID),
		zap.Int("quantity", cmd.Quantity))
	return nil
}

// UpdateCartItem sets the quantity of an item already in the cart.
// Out-of-range quantities are rejected before any patch or network call.
func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) error {
	if cmd.ProductID == "" {
		return cart.ErrInvalidProduct
	}
	if !cart.ValidQuantity(cmd.Quantity) {
		return cart.ErrInvalidQuantity
	}

	tx := h.store.Begin(cache.KeyCart)
	tx.Patch(func(cur any) any {
		payload, isPayload := cur.(client.CartPayload)
		if !isPayload {
			return cur
		}
		if next, ok := payload.Cart.WithQuantity(cmd.ProductID, cmd.Quantity); ok {
			payload.Cart = next
			payload.ItemCount = next.ItemCount()
		}
		return payload
	})

	if err := h.api.UpdateCartItem(ctx, cmd.ProductID, cmd.Quantity); err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	return nil
}

// RemoveFromCart removes the matching item, whether the cached line
// holds a populated product or a bare ID.
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	if cmd.ProductID == "" {
		return cart.ErrInvalidProduct
	}

	tx := h.store.Begin(cache.KeyCart)
	tx.Patch(func(cur any) any {
		payload, ok := cur.(client.CartPayload)
		if !ok {
			return cur
		}
		payload.Cart = payload.Cart.WithoutItem(cmd.ProductID)
		payload.ItemCount = payload.Cart.ItemCount()
		return payload
	})

	if err := h.api.RemoveCartItem(ctx, cmd.ProductID); err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	return nil
}

// ClearCart empties the cart. Clearing an already-empty cart is not an
// error; the patch and the server call are both idempotent.
func (h *Handler) ClearCart(ctx context.Context, _ ClearCart) error {
	tx := h.store.Begin(cache.KeyCart)
	tx.Patch(func(cur any) any {
		payload, ok := cur.(client.CartPayload)
		if !ok {
			return cur
		}
		payload.Cart = payload.Cart.Cleared()
		payload.ItemCount = 0
		return payload
	})

	if err := h.api.ClearCart(ctx); err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	return nil
}

// PlaceOrder creates an order from the current cart. There is no
// optimistic patch for creation; the cart and order list entries are
// invalidated once the server confirms.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	if err := cmd.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	payload, ok := h.cachedCart()
	if !ok {
		fetched, err := h.api.GetCart(ctx)
		if err != nil {
			return nil, err
		}
		payload = *fetched
	}
	if len(payload.Cart.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}

	o, err := h.api.CreateOrder(ctx, cmd.ShippingAddress, cmd.Notes)
	if err != nil {
		return nil, err
	}

	h.store.Set(cache.KeyOrder(o.ID), *o)
	h.store.Invalidate(cache.KeyCart)
	h.store.Invalidate(cache.KeyOrders)
	h.log.Info("order placed", zap.String("order_id", o.ID))
	return o, nil
}

// CancelOrder optimistically moves the cached order to cancelled with a
// history entry, then confirms with the server.
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) error {
	if cur, ok, _ := h.store.Lookup(cache.KeyOrder(cmd.OrderID)); ok {
		if o, isOrder := cur.(order.Order); isOrder && !o.CanCancel() {
			return order.ErrNotCancellable
		}
	}

	tx := h.store.Begin(cache.KeyOrder(cmd.OrderID))
	tx.Patch(func(cur any) any {
		o, isOrder := cur.(order.Order)
		if !isOrder {
			return cur
		}
		next, err := o.WithStatus(order.StatusCancelled, cmd.Reason, time.Now())
		if err != nil {
			return cur
		}
		return next
	})

	if err := h.api.CancelOrder(ctx, cmd.OrderID, cmd.Reason); err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	h.store.Invalidate(cache.KeyOrders)
	return nil
}

func (h *Handler) cachedCart() (client.CartPayload, bool) {
	cur, ok, _ := h.store.Lookup(cache.KeyCart)
	if !ok {
		return client.CartPayload{}, false
	}
	payload, isPayload := cur.(client.CartPayload)
	return payload, isPayload
}

// cachedProduct finds product details in the single-product entry or the
// product list entry, for building optimistic line items.
func (h *Handler) cachedProduct(productID string) *product.Product {
	if cur, ok, _ := h.store.Lookup(cache.KeyProduct(productID)); ok {
		if p, isProduct := cur.(product.Product); isProduct {
			return &p
		}
	}
	if cur, ok, _ := h.store.Lookup(cache.KeyProducts); ok {
		if list, isList := cur.([]product.Product); isList {
			for _, p := range list {
				if p.ID == productID {
					return &p
				}
			}
		}
	}
	return nil
}

// IsValidationError reports whether err was rejected locally, before any
// cache patch or network call.
func IsValidationError(err error) bool {
	return errors.Is(err, cart.ErrInvalidQuantity) ||
		errors.Is(err, cart.ErrInvalidProduct) ||
		errors.Is(err, order.ErrInvalidShipping) ||
		errors.Is(err, order.ErrNotCancellable)
}
