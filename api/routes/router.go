package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felipecardoza/agrolink-backend/api/controllers"
	"github.com/felipecardoza/agrolink-backend/api/middleware"
	"github.com/felipecardoza/agrolink-backend/internal/auth"
	"github.com/felipecardoza/agrolink-backend/internal/cart"
	"github.com/felipecardoza/agrolink-backend/internal/payments"
	products "github.com/felipecardoza/agrolink-backend/internal/products"
	sessionpkg "github.com/felipecardoza/agrolink-backend/internal/session"
	"github.com/felipecardoza/agrolink-backend/internal/wishlist"
	"github.com/felipecardoza/agrolink-backend/pkg/auth/session"
	"github.com/felipecardoza/agrolink-backend/pkg/config"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
	"github.com/felipecardoza/agrolink-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    pinger
	Redis *redis.Client

	SessionChecker session.AccessSessionChecker

	AuthService     auth.Service
	RegisterService auth.RegisterService
	SwitchService   auth.SwitchRoleService

	ProductService  products.Service
	CartService     cart.Service
	WishlistService wishlist.Service
	PaymentService  payments.Service

	Sessions *sessionpkg.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// Avoid handing typed-nil clients to interface parameters.
	var cache pinger
	var limiterStore middleware.RateLimiterStore
	if deps.Redis != nil {
		cache = deps.Redis
		limiterStore = deps.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, cache))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
		r.Get("/products", controllers.ListProducts(deps.ProductService, logg))
		r.Get("/products/{productId}", controllers.GetProduct(deps.ProductService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, limiterStore, logg)).
			Post("/register", controllers.AuthRegister(deps.RegisterService, deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, deps.Sessions, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Post("/auth/switch-role", controllers.AuthSwitchRole(deps.SwitchService, deps.Sessions, logg))

		r.Route("/session", func(r chi.Router) {
			r.Post("/", controllers.SessionStart(deps.Sessions, logg))
			r.Get("/", controllers.SessionView(deps.Sessions, logg))
			r.Delete("/", controllers.SessionEnd(deps.Sessions, logg))
		})

		r.Route("/negotiations", func(r chi.Router) {
			r.Get("/", controllers.NegotiationList(deps.Sessions, logg))
			r.Post("/", controllers.NegotiationOpen(deps.Sessions, logg))
			r.Post("/{negotiationId}/counter", controllers.NegotiationCounter(deps.Sessions, logg))
			r.Post("/{negotiationId}/respond", controllers.NegotiationRespond(deps.Sessions, logg))
			r.Get("/{negotiationId}/messages", controllers.NegotiationMessages(deps.Sessions, logg))
			r.Post("/{negotiationId}/messages", controllers.NegotiationSendMessage(deps.Sessions, logg))
			r.Post("/messages/{messageId}/retry", controllers.NegotiationRetryMessage(deps.Sessions, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleBuyer), logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Sessions, logg))
				r.Put("/items", controllers.CartUpsertItem(deps.Sessions, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.CartService, deps.Sessions, logg))
				r.Post("/checkout", controllers.Checkout(deps.Sessions, logg))
			})
			r.Get("/checkout/sessions/{sessionId}", controllers.CheckoutSessionStatus(deps.PaymentService, logg))

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistList(deps.WishlistService, logg))
				r.Get("/ids", controllers.WishlistIDs(deps.WishlistService, logg))
				r.Post("/", controllers.WishlistAdd(deps.WishlistService, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(deps.WishlistService, logg))
			})
		})

		r.Route("/farmer/products", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleFarmer), logg))
			r.Get("/", controllers.FarmerListProducts(deps.ProductService, logg))
			r.Post("/", controllers.FarmerCreateProduct(deps.ProductService, logg))
			r.Patch("/{productId}", controllers.FarmerUpdateProduct(deps.ProductService, logg))
			r.Delete("/{productId}", controllers.FarmerDeactivateProduct(deps.ProductService, logg))
		})
	})

	return r
}
