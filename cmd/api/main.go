package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradepost-io/tradepost-backend/api"
	"github.com/tradepost-io/tradepost-backend/api/routes"
	"github.com/tradepost-io/tradepost-backend/internal/accounts"
	"github.com/tradepost-io/tradepost-backend/internal/cart"
	"github.com/tradepost-io/tradepost-backend/internal/checkout"
	"github.com/tradepost-io/tradepost-backend/internal/inventory"
	"github.com/tradepost-io/tradepost-backend/internal/notifications"
	internalorders "github.com/tradepost-io/tradepost-backend/internal/orders"
	"github.com/tradepost-io/tradepost-backend/internal/pricing"
	"github.com/tradepost-io/tradepost-backend/internal/wallet"
	"github.com/tradepost-io/tradepost-backend/pkg/config"
	"github.com/tradepost-io/tradepost-backend/pkg/db"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/migrate"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox"
	"github.com/tradepost-io/tradepost-backend/pkg/redis"
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

	conn := dbClient.DB()

	walletService, err := wallet.NewService(wallet.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	pricingEngine, err := pricing.NewEngine(pricing.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing engine", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	ordersRepo := internalorders.NewRepository(conn)

	checkoutService, err := checkout.NewService(
		dbClient,
		cart.NewRepository(conn),
		inventory.NewRepository(conn),
		accounts.NewRepository(conn),
		ordersRepo,
		pricingEngine,
		walletService,
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := internalorders.NewService(dbClient, ordersRepo, walletService, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(cfg, logg, dbClient, redisClient, checkoutService, ordersService, notificationsService)
	server := api.NewServer(cfg, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": server.Addr,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
