package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peersenco/storefront-backend/api/controllers"
	authcontrollers "github.com/peersenco/storefront-backend/api/controllers/auth"
	cartcontrollers "github.com/peersenco/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/peersenco/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/peersenco/storefront-backend/api/controllers/webhooks"
	"github.com/peersenco/storefront-backend/api/middleware"
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
	"github.com/peersenco/storefront-backend/pkg/auth/session"
	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/metrics"
	pkgredis "github.com/peersenco/storefront-backend/pkg/redis"
)

// Store backs the idempotency and rate limit middleware. *redis.Client
// satisfies it.
type Store interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeSigner interface {
	SigningSecret() string
}

// Dependencies carries everything NewRouter mounts. Nil Store disables
// idempotency and rate limiting.
type Dependencies struct {
	Pingers  map[string]controllers.Pinger
	Store    Store
	Sessions session.AccessSessionChecker

	Auth       auth.Service
	Profiles   users.ProfileService
	Products   products.Service
	Categories categories.Service
	Cart       cart.Service
	Checkout   checkoutsvc.Service
	Orders     orders.Service
	Addresses  addresses.Service
	Favorites  favorites.Service
	Chat       chat.Service
	Media      media.Service

	StripeClient  stripeSigner
	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeGuard   stripeWebhookGuard

	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.PublicBaseURL),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	var limiter, idem = rateStore(deps.Store), idempotencyStore(deps.Store)

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIPLimit/2,
	)
	registerPolicy := middleware.NewRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterIPLimit/2,
	)
	chatPolicy := middleware.NewRateLimitPolicy("chat", cfg.Chat.RateLimitWindow, cfg.Chat.RateLimitIP, 0)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idem, logg))

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.StripeGuard, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.CartSession(false, logg))
			r.With(middleware.RateLimit(loginPolicy, limiter, logg)).Post("/login", authcontrollers.AuthLogin(deps.Auth, logg))
			r.With(middleware.RateLimit(registerPolicy, limiter, logg)).Post("/register", authcontrollers.AuthRegister(deps.Auth, logg))
			r.Post("/refresh", authcontrollers.AuthRefresh(deps.Auth, logg))
			r.Post("/logout", authcontrollers.AuthLogout(deps.Auth, cfg.JWT, logg))
		})

		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{slug}", controllers.ProductGet(deps.Products, logg))
		r.Get("/categories", controllers.CategoryList(deps.Categories, logg))

		r.With(middleware.RateLimit(chatPolicy, limiter, logg)).Post("/chat", controllers.Chat(deps.Chat, logg))
		r.Post("/payments/intent", controllers.PaymentIntentCreate(deps.Checkout, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(true, logg))
			r.Use(middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
				r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{productId}", cartcontrollers.CartSetItemQuantity(deps.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
			})
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idem, logg))

		r.Get("/me", controllers.MeGet(deps.Profiles, logg))
		r.Patch("/me", controllers.MeUpdate(deps.Profiles, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(deps.Addresses, logg))
			r.Post("/", controllers.AddressCreate(deps.Addresses, logg))
			r.Patch("/{addressId}", controllers.AddressUpdate(deps.Addresses, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(deps.Addresses, logg))
			r.Post("/{addressId}/default", controllers.AddressSetDefault(deps.Addresses, logg))
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", controllers.FavoritesList(deps.Favorites, logg))
			r.Put("/{productId}", controllers.FavoritesAdd(deps.Favorites, logg))
			r.Delete("/{productId}", controllers.FavoritesRemove(deps.Favorites, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))

			r.Post("/products", controllers.AdminCreateProduct(deps.Products, logg))
			r.Patch("/products/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))

			r.Post("/categories", controllers.AdminCreateCategory(deps.Categories, logg))
			r.Patch("/categories/{categoryId}", controllers.AdminUpdateCategory(deps.Categories, logg))
			r.Delete("/categories/{categoryId}", controllers.AdminDeleteCategory(deps.Categories, logg))

			r.Get("/orders", ordercontrollers.AdminList(deps.Orders, logg))
			r.Patch("/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))

			maxBytes := int64(cfg.Media.MaxUploadMB) << 20
			r.Post("/media/images", controllers.AdminUploadImage(deps.Media, maxBytes, logg))
			r.Delete("/media/images", controllers.AdminDeleteImage(deps.Media, logg))
		})
	})

	return r
}

// The middleware treat a nil interface as "disabled"; a typed nil Store
// must not leak through as non-nil.
func rateStore(s Store) interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
} {
	if s == nil {
		return nil
	}
	return s
}

func idempotencyStore(s Store) pkgredis.IdempotencyStore {
	if s == nil {
		return nil
	}
	return s
}
