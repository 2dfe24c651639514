// Command billing-cycle starts a new subscription billing cycle by clearing every
// subscription's skip count. Run it from cron at the start of each cycle.
package main

import (
	"context"
	"time"

	"github.com/safar/farm-market/internal/config"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/store"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := store.ResetSkipCounts(ctx, db)
	if err != nil {
		logger.Fatal("reset skip counts", zap.Error(err))
	}
	logger.Info("billing cycle started", zap.Int64("subscriptions_reset", n))
}
