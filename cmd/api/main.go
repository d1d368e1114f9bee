package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/peersenco/storefront-backend/api/controllers"
	"github.com/peersenco/storefront-backend/api/routes"
	"github.com/peersenco/storefront-backend/internal/addresses"
	"github.com/peersenco/storefront-backend/internal/auth"
	"github.com/peersenco/storefront-backend/internal/cart"
	"github.com/peersenco/storefront-backend/internal/categories"
	"github.com/peersenco/storefront-backend/internal/chat"
	checkoutsvc "github.com/peersenco/storefront-backend/internal/checkout"
	"github.com/peersenco/storefront-backend/internal/favorites"
	"github.com/peersenco/storefront-backend/internal/media"
	"github.com/peersenco/storefront-backend/internal/orders"
	products "github.com/peersenco/storefront-backend/internal/products"
	"github.com/peersenco/storefront-backend/internal/users"
	stripewebhook "github.com/peersenco/storefront-backend/internal/webhooks/stripe"
	"github.com/peersenco/storefront-backend/pkg/auth/session"
	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/peersenco/storefront-backend/pkg/db"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/metrics"
	"github.com/peersenco/storefront-backend/pkg/migrate"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"github.com/peersenco/storefront-backend/pkg/redis"
	"github.com/peersenco/storefront-backend/pkg/security"
	"github.com/peersenco/storefront-backend/pkg/storage/gcs"
	"github.com/peersenco/storefront-backend/pkg/stripe"
)

const (
	serviceName         = "api"
	stripeEventTTL      = 24 * time.Hour
	shutdownGracePeriod = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": ":" + port,
	})

	if err := run(ctx, cfg, logg, ":"+port); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, addr string) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	gormDB := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	mediaService, err := media.NewService(gcsClient, media.Options{
		MaxBytes:     int64(cfg.Media.MaxUploadMB) << 20,
		CacheSeconds: cfg.Media.CacheSeconds,
	}, logg)
	if err != nil {
		return err
	}

	productRepo := products.NewRepository(gormDB)
	productService, err := products.NewService(productRepo, mediaService, logg)
	if err != nil {
		return err
	}
	categoryService, err := categories.NewService(categories.NewRepository(gormDB))
	if err != nil {
		return err
	}

	localCarts, err := cart.NewRedisLocalStore(redisClient, cfg.Cart.LocalTTL, logg)
	if err != nil {
		return err
	}
	coordinator, err := cart.NewCoordinator(
		localCarts,
		cart.NewRemoteRepository(gormDB),
		productService,
		logg,
		metrics.NewCartSyncMetrics(registry),
		cart.OptionsFromConfig(cfg.Cart),
	)
	if err != nil {
		return err
	}

	userRepo := users.NewRepository(gormDB)
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Hasher:         security.NewHasher(cfg.Password),
		SessionManager: sessionManager,
		Identity:       coordinator,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	profileService, err := users.NewProfileService(userRepo)
	if err != nil {
		return err
	}

	orderRepo := orders.NewRepository(gormDB)
	orderService, err := orders.NewService(orderRepo, dbClient, emitter, logg)
	if err != nil {
		return err
	}

	shipping, err := checkoutsvc.ShippingRuleFromConfig(cfg.Checkout)
	if err != nil {
		return err
	}
	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Carts:    coordinator,
		Orders:   orderRepo,
		Tx:       dbClient,
		Outbox:   emitter,
		Payments: stripeClient,
		Shipping: shipping,
		Currency: cfg.Checkout.Currency,
		Country:  cfg.Checkout.Country,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	addressService, err := addresses.NewService(addresses.NewRepository(gormDB), dbClient)
	if err != nil {
		return err
	}
	favoriteService, err := favorites.NewService(favorites.NewRepository(gormDB), productRepo)
	if err != nil {
		return err
	}

	// The assistant is optional; the route answers 500 until a key is configured.
	var chatService chat.Service
	if openaiClient, err := chat.NewClient(cfg.OpenAI); err != nil {
		logg.Warn(ctx, "chat disabled: "+err.Error())
	} else if chatService, err = chat.NewService(openaiClient, chat.OptionsFromConfig(cfg.OpenAI, cfg.Chat), logg); err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders: orderService,
		Carts:  coordinator,
		Logger: logg,
	})
	if err != nil {
		return err
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripeEventTTL, "stripe-webhook")
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Pingers: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
			"gcs":   gcsClient,
		},
		Store:         redisClient,
		Sessions:      sessionManager,
		Auth:          authService,
		Profiles:      profileService,
		Products:      productService,
		Categories:    categoryService,
		Cart:          coordinator,
		Checkout:      checkoutService,
		Orders:        orderService,
		Addresses:     addressService,
		Favorites:     favoriteService,
		Chat:          chatService,
		Media:         mediaService,
		StripeClient:  stripeClient,
		StripeWebhook: webhookService,
		StripeGuard:   webhookGuard,
		HTTPMetrics:   metrics.NewHTTPMetrics(registry),
		Gatherer:      registry,
	})

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		coordinator.RunSweeper(sweepCtx)
	}()

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	err = multierr.Append(err, server.Shutdown(shutdownCtx))

	cancelSweep()
	<-sweepDone
	// Pending remote cart writes must land before the process exits.
	err = multierr.Append(err, coordinator.Flush(shutdownCtx))
	return err
}
