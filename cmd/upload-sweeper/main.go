package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/credoria/credit-repair/internal/config"
	"github.com/credoria/credit-repair/internal/lib/sl"
	sweeperservice "github.com/credoria/credit-repair/internal/services/sweeper"
	"github.com/credoria/credit-repair/internal/storage/repository"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting upload-sweeper", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()

	service := sweeperservice.NewSweeperService(db, cfg.SweepInterval, cfg.UploadMaxAge, logger)
	service.Run(ctx)

	logger.Info("upload-sweeper stopped gracefully")
}
