package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/felipecardoza/agrolink-backend/api/routes"
	"github.com/felipecardoza/agrolink-backend/internal/auth"
	"github.com/felipecardoza/agrolink-backend/internal/cart"
	"github.com/felipecardoza/agrolink-backend/internal/ledger"
	"github.com/felipecardoza/agrolink-backend/internal/negotiation"
	"github.com/felipecardoza/agrolink-backend/internal/payments"
	product "github.com/felipecardoza/agrolink-backend/internal/products"
	sessionpkg "github.com/felipecardoza/agrolink-backend/internal/session"
	"github.com/felipecardoza/agrolink-backend/internal/store/gormstore"
	"github.com/felipecardoza/agrolink-backend/internal/users"
	"github.com/felipecardoza/agrolink-backend/internal/wishlist"
	"github.com/felipecardoza/agrolink-backend/pkg/auth/session"
	"github.com/felipecardoza/agrolink-backend/pkg/config"
	"github.com/felipecardoza/agrolink-backend/pkg/db"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
	"github.com/felipecardoza/agrolink-backend/pkg/metrics"
	"github.com/felipecardoza/agrolink-backend/pkg/migrate"
	"github.com/felipecardoza/agrolink-backend/pkg/pubsub"
	"github.com/felipecardoza/agrolink-backend/pkg/redis"
	pkgstripe "github.com/felipecardoza/agrolink-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	// Stripe is optional in local setups: without credentials the API still
	// serves everything except checkout, which fails fast per request.
	var checkoutClient payments.CheckoutSessionClient
	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	switch {
	case err == nil:
		checkoutClient = payments.NewStripeClient(stripeClient)
	case pkgstripe.IsCredentialError(err):
		logg.Warn(ctx, "stripe credentials missing, checkout disabled")
	default:
		logg.Error(ctx, "failed to initialize stripe", err)
		os.Exit(1)
	}

	remoteStore, err := gormstore.New(dbClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create negotiation store", err)
		os.Exit(1)
	}

	// The pub/sub changefeed keeps live feeds in sync across instances. It
	// is optional: a single instance works from local write-through alone.
	if pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "pubsub unavailable, running single-instance")
	} else {
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		publisher, err := gormstore.NewPubsubPublisher(pubsubClient.ChangefeedPublisher())
		if err != nil {
			logg.Error(ctx, "failed to create changefeed publisher", err)
			os.Exit(1)
		}
		remoteStore.AttachPublisher(publisher)
		go func() {
			if err := remoteStore.Listen(ctx, pubsubClient.ChangefeedSubscription()); err != nil {
				logg.Error(ctx, "changefeed listener stopped", err)
			}
		}()
	}

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := product.NewRepository(dbClient.DB())

	productService, err := product.NewService(productRepo, userRepo)
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create settlement ledger", err)
		os.Exit(1)
	}

	negotiationService, err := negotiation.NewService(remoteStore, productService, ledgerService, logg, cfg.Gates.MinBulkQty)
	if err != nil {
		logg.Error(ctx, "failed to create negotiation service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), dbClient, productService, remoteStore, cfg.Gates.MinCartValue)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(dbClient.DB()),
		ProductRepo:  productRepo,
		Users:        userRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create wishlist service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		Client:   checkoutClient,
		Products: productService,
		Config:   cfg.Stripe,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create payment service", err)
		os.Exit(1)
	}

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	registry, err := sessionpkg.NewRegistry(func(identity sessionpkg.Identity) (*sessionpkg.Controller, error) {
		return sessionpkg.NewController(sessionpkg.ControllerParams{
			Identity:     identity,
			Store:        remoteStore,
			Negotiations: negotiationService,
			Carts:        cartService,
			Wishlists:    wishlistService,
			Payments:     paymentService,
			Limiter:      redisClient,
			Logger:       logg,
			Metrics:      syncMetrics,
		})
	})
	if err != nil {
		logg.Error(ctx, "failed to create session registry", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		os.Exit(1)
	}

	switchService, err := auth.NewSwitchRoleService(auth.SwitchRoleServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create switch role service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		SessionChecker:  sessionManager,
		AuthService:     authService,
		RegisterService: registerService,
		SwitchService:   switchService,
		ProductService:  productService,
		CartService:     cartService,
		WishlistService: wishlistService,
		PaymentService:  paymentService,
		Sessions:        registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	bootCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(bootCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(bootCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
