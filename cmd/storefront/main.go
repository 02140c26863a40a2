package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/cache"
	"github.com/example/storefront/internal/client"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/invalidation"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/query"
)

const usage = `usage: storefront <command> [args]

  products                    list products
  product <id>                show one product
  cart                        show the cart
  add <productID> <qty>       add an item
  update <productID> <qty>    change an item's quantity
  remove <productID>          remove an item
  clear                       empty the cart
  place-order [flags]         create an order from the cart
  orders                      list orders
  order <id>                  show one order
  cancel-order <id> [reason]  cancel an order
  pay <orderID>               pay an order by card
  cod <orderID>               confirm a cash-on-delivery order
  watch                       follow cart changes until interrupted
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Configuration from environment variables
	apiURL := getEnv("STOREFRONT_API_URL", "http://localhost:4000/api")
	token := os.Getenv("STOREFRONT_TOKEN")
	publishableKey := os.Getenv("PAYMENT_PUBLISHABLE_KEY")
	kafkaBrokersStr := os.Getenv("KAFKA_BROKERS")
	kafkaTopic := getEnv("KAFKA_TOPIC", "storefront-events")

	opts := []client.Option{client.WithLogger(logger)}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	api, err := client.New(apiURL, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid STOREFRONT_API_URL: %v\n", err)
		os.Exit(1)
	}

	store := cache.NewStore(logger)
	commands := command.NewHandler(api, store, logger)
	queries := query.NewHandler(api, store, logger)
	payments := payment.NewService(api, store, payment.Config{PublishableKey: publishableKey}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{
		commands: commands,
		queries:  queries,
		payments: payments,
		store:    store,
		logger:   logger,
		brokers:  kafkaBrokersStr,
		topic:    kafkaTopic,
	}
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

type app struct {
	commands *command.Handler
	queries  *query.Handler
	payments *payment.Service
	store    *cache.Store
	logger   *zap.Logger
	brokers  string
	topic    string
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "products":
		list, err := a.queries.ListProducts(ctx)
		if err != nil {
			return err
		}
		return printJSON(list)

	case "product":
		if len(args) < 1 {
			return errors.New("product: missing id")
		}
		p, err := a.queries.GetProduct(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(p)

	case "cart":
		payload, err := a.queries.GetCart(ctx)
		if err != nil {
			return err
		}
		return printJSON(payload)

	case "add":
		productID, qty, err := productAndQuantity(args)
		if err != nil {
			return err
		}
		if err := a.commands.AddToCart(ctx, command.AddToCart{ProductID: productID, Quantity: qty}); err != nil {
			return err
		}
		fmt.Println("added to cart")
		return nil

	case "update":
		productID, qty, err := productAndQuantity(args)
		if err != nil {
			return err
		}
		if err := a.commands.UpdateCartItem(ctx, command.UpdateCartItem{ProductID: productID, Quantity: qty}); err != nil {
			return err
		}
		fmt.Println("cart updated")
		return nil

	case "remove":
		if len(args) < 1 {
			return errors.New("remove: missing product id")
		}
		if err := a.commands.RemoveFromCart(ctx, command.RemoveFromCart{ProductID: args[0]}); err != nil {
			return err
		}
		fmt.Println("removed from cart")
		return nil

	case "clear":
		if err := a.commands.ClearCart(ctx, command.ClearCart{}); err != nil {
			return err
		}
		fmt.Println("cart cleared")
		return nil

	case "place-order":
		return a.placeOrder(ctx, args)

	case "orders":
		list, err := a.queries.ListOrders(ctx)
		if err != nil {
			return err
		}
		return printJSON(list)

	case "order":
		if len(args) < 1 {
			return errors.New("order: missing id")
		}
		o, err := a.queries.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(o)

	case "cancel-order":
		if len(args) < 1 {
			return errors.New("cancel-order: missing id")
		}
		reason := ""
		if len(args) > 1 {
			reason = strings.Join(args[1:], " ")
		}
		if err := a.commands.CancelOrder(ctx, command.CancelOrder{OrderID: args[0], Reason: reason}); err != nil {
			return err
		}
		fmt.Println("order cancelled")
		return nil

	case "pay":
		if len(args) < 1 {
			return errors.New("pay: missing order id")
		}
		return a.pay(ctx, args[0])

	case "cod":
		if len(args) < 1 {
			return errors.New("cod: missing order id")
		}
		if err := a.payments.ConfirmCOD(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("cash-on-delivery order confirmed")
		return nil

	case "watch":
		return a.watch(ctx)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) placeOrder(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("place-order", flag.ContinueOnError)
	var addr order.ShippingAddress
	var notes string
	fs.StringVar(&addr.FullName, "name", "", "recipient full name")
	fs.StringVar(&addr.Line1, "line1", "", "address line 1")
	fs.StringVar(&addr.Line2, "line2", "", "address line 2")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.PostalCode, "zip", "", "postal code")
	fs.StringVar(&addr.Country, "country", "", "country")
	fs.StringVar(&addr.Phone, "phone", "", "phone number")
	fs.StringVar(&notes, "notes", "", "delivery notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	o, err := a.commands.PlaceOrder(ctx, command.PlaceOrder{ShippingAddress: addr, Notes: notes})
	if err != nil {
		return err
	}
	fmt.Printf("order placed: %s\n", o.ID)
	return printJSON(o)
}

func (a *app) pay(ctx context.Context, orderID string) error {
	secret, err := a.payments.CreateIntent(ctx, orderID)
	if err != nil {
		return err
	}
	// The provider SDK confirms the card against the client secret; the
	// CLI goes straight to verification.
	intentID := intentIDFromSecret(secret)
	if err := a.payments.Verify(ctx, intentID, orderID); err != nil {
		return err
	}
	fmt.Println("payment verified")
	return nil
}

// watch subscribes to the cart entry and, when brokers are configured,
// feeds backend events into cache invalidation. Each change re-reads the
// cart through the cache and prints it.
func (a *app) watch(ctx context.Context) error {
	sub := a.store.Subscribe(cache.KeyCart)
	defer sub.Cancel()

	if a.brokers != "" {
		consumer := invalidation.NewConsumer(strings.Split(a.brokers, ","), a.topic, "storefront-client", a.logger)
		defer consumer.Close()
		inv := invalidation.NewInvalidator(a.store, a.logger)
		go func() {
			if err := consumer.Consume(ctx, inv.HandleEvent); err != nil && ctx.Err() == nil {
				a.logger.Error("invalidation consumer stopped", zap.Error(err))
			}
		}()
	}

	a.showCart(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.C:
			a.showCart(ctx)
		}
	}
}

// showCart prints the current cart; any failure, fetch or print, is
// reported instead of dropped so watch never swallows an error.
func (a *app) showCart(ctx context.Context) {
	payload, err := a.queries.GetCart(ctx)
	if err == nil {
		err = printJSON(payload)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
	}
}

// userMessage converts an error into the message shown to the user; no
// failure stays silent.
func userMessage(err error) string {
	switch {
	case errors.Is(err, client.ErrAuthRequired):
		return "please log in to continue (set STOREFRONT_TOKEN or sign in first)"
	case errors.Is(err, payment.ErrNotConfigured):
		return "card payment is unavailable: PAYMENT_PUBLISHABLE_KEY is not set"
	default:
		return err.Error()
	}
}

func productAndQuantity(args []string) (string, int, error) {
	if len(args) < 2 {
		return "", 0, errors.New("expected <productID> <quantity>")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid quantity %q", args[1])
	}
	return args[0], qty, nil
}

// intentIDFromSecret extracts the intent ID prefix of a client secret
// ("pi_..._secret_...").
func intentIDFromSecret(secret string) string {
	if i := strings.Index(secret, "_secret_"); i > 0 {
		return secret[:i]
	}
	return secret
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
