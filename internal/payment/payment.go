// Package payment drives the card and cash-on-delivery payment flows.
// The actual card confirmation happens in the provider's own SDK against
// the client secret; this package only creates and verifies intents
// through the storefront API.
package payment

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/cache"
)

// ErrNotConfigured is returned when the payment provider's publishable
// key is absent. Callers render a configuration-error state instead of
// attempting the operation.
var ErrNotConfigured = errors.New("payment provider is not configured")

const defaultCurrency = "usd"

// API is the slice of the storefront client used for payments.
type API interface {
	CreatePaymentIntent(ctx context.Context, orderID, currency string) (string, error)
	VerifyPayment(ctx context.Context, paymentIntentID, orderID string) error
	ConfirmCODOrder(ctx context.Context, orderID string) error
}

// Config carries the build-time payment configuration.
type Config struct {
	PublishableKey string
	Currency       string
}

type Service struct {
	api   API
	store *cache.Store
	cfg   Config
	log   *zap.Logger
}

func NewService(api API, store *cache.Store, cfg Config, log *zap.Logger) *Service {
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, store: store, cfg: cfg, log: log}
}

// Configured reports whether card payment is usable.
func (s *Service) Configured() bool {
	return s.cfg.PublishableKey != ""
}

// CreateIntent starts a card payment for the order and returns the
// client secret the provider SDK confirms against.
func (s *Service) CreateIntent(ctx context.Context, orderID string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	secret, err := s.api.CreatePaymentIntent(ctx, orderID, s.cfg.Currency)
	if err != nil {
		return "", err
	}
	s.log.Debug("payment intent created", zap.String("order_id", orderID))
	return secret, nil
}

// Verify settles a confirmed card payment and invalidates the order's
// cache entries so the paid status is re-fetched.
func (s *Service) Verify(ctx context.Context, paymentIntentID, orderID string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := s.api.VerifyPayment(ctx, paymentIntentID, orderID); err != nil {
		return err
	}
	s.store.Invalidate(cache.KeyOrder(orderID))
	s.store.Invalidate(cache.KeyOrders)
	s.log.Info("payment verified", zap.String("order_id", orderID))
	return nil
}

// ConfirmCOD confirms a cash-on-delivery order. COD needs no provider
// configuration.
func (s *Service) ConfirmCOD(ctx context.Context, orderID string) error {
	if err := s.api.ConfirmCODOrder(ctx, orderID); err != nil {
		return err
	}
	s.store.Invalidate(cache.KeyOrder(orderID))
	s.store.Invalidate(cache.KeyOrders)
	s.log.Info("cod order confirmed", zap.String("order_id", orderID))
	return nil
}
