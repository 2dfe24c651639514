package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safar/farm-market/internal/api"
	"github.com/safar/farm-market/internal/auth"
	"github.com/safar/farm-market/internal/cart"
	"github.com/safar/farm-market/internal/checkout"
	"github.com/safar/farm-market/internal/config"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/orders"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/safar/farm-market/internal/subscription"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	zones := pricing.DefaultZones()
	if cfg.Delivery.ZonesFile != "" {
		zones, err = pricing.LoadZoneFile(cfg.Delivery.ZonesFile)
		if err != nil {
			logger.Fatal("load delivery zones", zap.String("file", cfg.Delivery.ZonesFile), zap.Error(err))
		}
	}
	logger.Info("delivery zones loaded", zap.Int("zones", zones.Len()), zap.Bool("strict", cfg.Delivery.StrictZones))

	engineOpts := []pricing.Option{pricing.WithLogger(logger.Named("pricing"))}
	if cfg.Delivery.StrictZones {
		engineOpts = append(engineOpts, pricing.WithStrictZones())
	}
	engine := pricing.NewEngine(zones, engineOpts...)

	numbers, err := orders.NewSnowflakeNumbers(cfg.Checkout.OrderNumberNode)
	if err != nil {
		logger.Fatal("order numbers", zap.Error(err))
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	lifecycle := subscription.NewLifecycle(cfg.Subscription.SkipCap, zones, nil)

	server := &api.Server{
		DB:            db,
		Engine:        engine,
		Carts:         cart.NewMemoryStorage(),
		Auth:          auth.NewService(db, tokens, cfg.Auth.BcryptCost, logger.Named("auth")),
		Tokens:        tokens,
		Checkout:      checkout.NewService(db, engine, numbers, cfg.Checkout.MaxNumberRetries, logger.Named("checkout")),
		Subscriptions: subscription.NewService(db, lifecycle, logger.Named("subscriptions")),
		Logger:        logger,
	}

	dispatcher := subscription.NewDispatcher(db, lifecycle, engine, numbers, cfg.Subscription.DispatchInterval, logger.Named("dispatcher"))
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(dispatchCtx)
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown", zap.Error(err))
		}

		stopDispatch()
		<-dispatchDone
		close(idleConnsClosed)
	}()

	logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
