package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rigforge/rigforge-backend/api/controllers"
	"github.com/rigforge/rigforge-backend/api/routes"
	"github.com/rigforge/rigforge-backend/internal/blacklist"
	"github.com/rigforge/rigforge-backend/internal/cart"
	"github.com/rigforge/rigforge-backend/internal/catalog"
	"github.com/rigforge/rigforge-backend/internal/checkout"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/internal/notifications"
	"github.com/rigforge/rigforge-backend/internal/orders"
	"github.com/rigforge/rigforge-backend/internal/wallet"
	"github.com/rigforge/rigforge-backend/pkg/config"
	"github.com/rigforge/rigforge-backend/pkg/db"
	"github.com/rigforge/rigforge-backend/pkg/instance"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/migrate"
	"github.com/rigforge/rigforge-backend/pkg/outbox"
	"github.com/rigforge/rigforge-backend/pkg/paypal"
	"github.com/rigforge/rigforge-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(gormDB)
	cartSvc, err := cart.NewService(cartRepo, catalogSvc, couponSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	walletSvc, err := wallet.NewService(wallet.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	blacklistSvc, err := blacklist.NewService(blacklist.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create blacklist service", err)
		os.Exit(1)
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	ordersRepo := orders.NewRepository(gormDB)

	var verifier orders.PaymentVerifier
	if cfg.PayPal.ClientID != "" {
		verifier = paypal.NewClient(cfg.PayPal, logg)
	} else {
		logg.Warn(context.Background(), "paypal credentials missing, payment verification disabled")
	}

	orderSvc, err := orders.NewService(ordersRepo, dbClient, walletSvc, couponSvc, blacklistSvc, outboxSvc, verifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(
		dbClient,
		cartRepo,
		catalogSvc,
		couponSvc,
		walletSvc,
		ordersRepo,
		checkout.NewUserDirectory(gormDB),
		outboxSvc,
		cfg.Pricing,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	healthDeps := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, healthDeps, routes.Services{
			Catalog:       catalogSvc,
			Cart:          cartSvc,
			Checkout:      checkoutSvc,
			Orders:        orderSvc,
			Wallet:        walletSvc,
			Coupons:       couponSvc,
			Blacklist:     blacklistSvc,
			Notifications: notificationSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
