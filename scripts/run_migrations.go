package main

import (
	"context"
	"database/sql"
	"os"

	_ "github.com/lib/pq"
	"github.com/safar/farm-market/internal/config"
	"github.com/safar/farm-market/internal/database"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Fatal("usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := database.Direction(os.Args[1])
	if direction != database.MigrateUp && direction != database.MigrateDown {
		logger.Fatal("direction must be 'up' or 'down'", zap.String("direction", string(direction)))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}

	n, err := database.Migrate(context.Background(), db, "migrations", direction, logger)
	if err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	logger.Info("migrations applied", zap.Int("count", n), zap.String("direction", string(direction)))
}
