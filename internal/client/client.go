// Package client is the typed HTTP client for the storefront API. All
// responses arrive in a { data } envelope; errors carry the server's
// message when it sent one. Sessions are cookie-based; an optional
// bearer token is supported and its expiry is checked locally before a
// request goes out.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
)

const defaultTimeout = 15 * time.Second

// Client talks to the storefront API.
type Client struct {
	base  *url.URL
	httpc *http.Client
	token string
	log   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests use this to
// point at a fixture server without a cookie jar of their own).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithToken sets a bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New builds a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:  base,
		httpc: &http.Client{Jar: jar, Timeout: defaultTimeout},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token, e.g. after a login or refresh.
func (c *Client) SetToken(token string) {
	c.token = token
}

// envelope is the API's response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// tokenUsable checks the bearer token's exp claim locally so an expired
// session surfaces as ErrAuthRequired without a wasted round trip. The
// signature is not verified here; that is the server's job.
func tokenUsable(token string) error {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil // not a JWT, let the server decide
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("%w: session token expired", ErrAuthRequired)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.token != "" {
		if err := tokenUsable(c.token); err != nil {
			return err
		}
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = genericMessage
		}
		c.log.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthRequired, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		default:
			return &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
	}

	if out == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// Cart endpoints

// CartPayload is the GET /cart response body.
type CartPayload struct {
	Cart      cart.Cart `json:"cart"`
	ItemCount int       `json:"itemCount"`
}

func (c *Client) GetCart(ctx context.Context) (*CartPayload, error) {
	var out CartPayload
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) (*cart.Cart, error) {
	body := map[string]any{"productId": productID, "quantity": quantity}
	var out cart.Cart
	if err := c.do(ctx, http.MethodPost, "/cart/items", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	body := map[string]any{"quantity": quantity}
	return c.do(ctx, http.MethodPatch, "/cart/items/"+url.PathEscape(productID), body, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(productID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}

// Product endpoints

func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	var out struct {
		Products []product.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	var out struct {
		Product product.Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

// Order endpoints

func (c *Client) CreateOrder(ctx context.Context, addr order.ShippingAddress, notes string) (*order.Order, error) {
	body := map[string]any{"shippingAddress": addr, "notes": notes}
	var out struct {
		Order order.Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	var out struct {
		Order order.Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var out struct {
		Orders []order.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) CancelOrder(ctx context.Context, id, reason string) error {
	body := map[string]any{"reason": reason}
	return c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(id)+"/cancel", body, nil)
}

// Payment endpoints

func (c *Client) CreatePaymentIntent(ctx context.Context, orderID, currency string) (string, error) {
	body := map[string]any{"orderId": orderID, "currency": currency}
	var out struct {
		ClientSecret string `json:"clientSecret"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/create-intent", body, &out); err != nil {
		return "", err
	}
	return out.ClientSecret, nil
}

func (c *Client) VerifyPayment(ctx context.Context, paymentIntentID, orderID string) error {
	body := map[string]any{"paymentIntentId": paymentIntentID, "orderId": orderID}
	return c.do(ctx, http.MethodPost, "/payments/verify", body, nil)
}

func (c *Client) ConfirmCODOrder(ctx context.Context, orderID string) error {
	body := map[string]any{"orderId": orderID}
	return c.do(ctx, http.MethodPost, "/payments/cod/confirm", body, nil)
}
