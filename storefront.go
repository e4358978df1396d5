// Package storefront wires the client-side stores and services of the warehouse storefront.
package storefront

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"goflare.io/storefront/api"
	"goflare.io/storefront/cart"
	"goflare.io/storefront/category"
	"goflare.io/storefront/checkout"
	"goflare.io/storefront/event"
	"goflare.io/storefront/models"
	"goflare.io/storefront/order"
	"goflare.io/storefront/session"
	"goflare.io/storefront/stock"
	"goflare.io/storefront/storage"
)

type Options struct {
	API     api.Config
	Storage storage.Storage

	// Redis, when set, backs the category cache and event deduplication.
	Redis redis.Cmdable

	PublishableKey string
	// StripeBackend overrides the Stripe API endpoint; nil means the public API.
	StripeBackend stripe.Backend

	Navigator     checkout.Navigator
	RedirectDelay time.Duration
}

// App holds one storefront session: its stores and the services built on them. Construct it
// once per process and pass it down.
type App struct {
	Client     *api.Client
	Session    *session.Store
	Cart       *cart.Store
	Checkout   *checkout.Orchestrator
	Orders     order.Service
	Categories category.Service
	Stock      stock.Service
	Events     event.Repository

	eventManager *EventManager
	logger       *zap.Logger
}

func New(opts Options, logger *zap.Logger) *App {
	apiCfg := opts.API
	apiCfg.Tokens = session.StorageTokens(opts.Storage)
	client := api.NewClient(apiCfg, logger.Named("api"))

	sessionStore := session.NewStore(client, opts.Storage, logger.Named("session"))
	client.OnUnauthorized(sessionStore.Invalidate)

	nav := opts.Navigator
	if nav == nil {
		nav = checkout.NavigatorFunc(func(path string) {
			logger.Info("Navigate", zap.String("path", path))
		})
	}

	cartStore := cart.NewStore()
	form := checkout.NewStripeForm(opts.PublishableKey, opts.StripeBackend, logger.Named("stripe"))
	orchestrator := checkout.NewOrchestrator(cartStore, client, form, nav, opts.RedirectDelay, logger.Named("checkout"))

	var events event.Repository
	if opts.Redis != nil {
		events = event.NewRedisRepository(opts.Redis, logger.Named("event"))
	} else {
		events = event.NewMemoryRepository()
	}

	app := &App{
		Client:     client,
		Session:    sessionStore,
		Cart:       cartStore,
		Checkout:   orchestrator,
		Orders:     order.NewService(order.NewRepository(client, logger.Named("order")), orchestrator, logger.Named("order")),
		Categories: category.NewService(category.NewRepository(client, opts.Redis, logger.Named("category")), logger.Named("category")),
		Stock:      stock.NewService(stock.NewRepository(client, logger.Named("stock")), logger.Named("stock")),
		Events:     events,
		logger:     logger,
	}
	app.eventManager = NewEventManager(logger.Named("events"))
	app.registerEventHandlers()
	return app
}

// Products lists the public catalog.
func (a *App) Products(ctx context.Context) ([]*models.Product, error) {
	return a.Stock.Products(ctx)
}

// Close drops pending navigations.
func (a *App) Close() {
	a.Checkout.Close()
}
