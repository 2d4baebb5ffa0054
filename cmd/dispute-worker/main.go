package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/credoria/credit-repair/internal/aiprovider"
	"github.com/credoria/credit-repair/internal/cache"
	"github.com/credoria/credit-repair/internal/config"
	"github.com/credoria/credit-repair/internal/lib/sl"
	"github.com/credoria/credit-repair/internal/models"
	"github.com/credoria/credit-repair/internal/objectstorage"
	"github.com/credoria/credit-repair/internal/rabbitmq"
	disputeservice "github.com/credoria/credit-repair/internal/services/dispute"
	"github.com/credoria/credit-repair/internal/storage/repository"
)

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting dispute-worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("succes to connect to RabbitMQ:", slog.String("URL", cfg.RabbitMQURL))
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetDisputeQueues())
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("success to setup RabbitMQ channel")
	defer func() {
		_ = ch.Close()
	}()

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()
	if err = waitForDB(db); err != nil {
		logger.Error("database is not ready:", sl.Err(err))
		os.Exit(1)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		logger.Error("failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	objStorage, err := objectstorage.NewClient(ctx, cfg.ObjectStorage)
	if err != nil {
		logger.Error("failed to init object storage client", sl.Err(err))
		os.Exit(1)
	}

	aiClient := aiprovider.NewClient(cfg.AIProvider)
	publisher := rabbitmq.NewDisputePublisher(ch)

	service := disputeservice.NewDisputeService(db, objStorage, aiClient, aiClient, publisher, cacheRedis, logger)

	handler := func(body []byte) error {
		var task models.DisputeTask
		if err := json.Unmarshal(body, &task); err != nil {
			// Нечитаемое сообщение не станет читаемым при повторной доставке.
			logger.Error("failed to unmarshal dispute task, dropping", sl.Err(err))
			return nil
		}
		return service.Process(ctx, task.DisputeID)
	}

	logger.Info("dispute-worker is consuming", slog.String("queue", rabbitmq.DisputeQueueName))
	if err := rabbitmq.ConsumerMessage(ctx, ch, rabbitmq.DisputeQueueName, handler); err != nil {
		logger.Error("failed to start consumer", sl.Err(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("dispute-worker stopped gracefully")
}
