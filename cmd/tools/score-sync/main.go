// cmd/tools/score-sync/main.go
// score-sync polls the external scoring provider for every non-terminal
// score session and writes the results back. Run it from cron or as a
// sidecar when webhook delivery cannot be relied on.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"talent-platform/internal/common/config"
	"talent-platform/internal/common/database"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/scoresync"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.Wrap(zapLog)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres ping failed", zap.Error(err))
	}

	client := scoresync.NewClient(cfg.Scoring.Service.APIKey, cfg.Scoring.Service.BaseURL,
		time.Duration(cfg.Scoring.Service.Timeout)*time.Millisecond)
	reconciler := scoresync.NewReconciler(
		pg.DB,
		client,
		time.Duration(cfg.Scoring.Reconcile.PollDelay)*time.Millisecond,
		cfg.Scoring.Reconcile.BatchSize,
		log,
	)

	result, err := reconciler.Run(ctx)
	if err != nil {
		zapLog.Fatal("reconcile run failed", zap.Error(err))
	}

	zapLog.Info("reconcile run finished",
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
	)
}
