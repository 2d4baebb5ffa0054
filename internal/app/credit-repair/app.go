// Package creditrepair собирает HTTP-приложение: хранилище, кэш,
// объектное хранилище, брокер задач и все сервисы с маршрутами.
package creditrepair

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/credoria/credit-repair/internal/aiprovider"
	"github.com/credoria/credit-repair/internal/cache"
	"github.com/credoria/credit-repair/internal/config"
	"github.com/credoria/credit-repair/internal/lib/jwt"
	"github.com/credoria/credit-repair/internal/migrations"
	"github.com/credoria/credit-repair/internal/objectstorage"
	"github.com/credoria/credit-repair/internal/rabbitmq"
	affiliateservice "github.com/credoria/credit-repair/internal/services/affiliate"
	authservice "github.com/credoria/credit-repair/internal/services/auth"
	disputeservice "github.com/credoria/credit-repair/internal/services/dispute"
	intakeservice "github.com/credoria/credit-repair/internal/services/intake"
	ledgerservice "github.com/credoria/credit-repair/internal/services/ledger"
	"github.com/credoria/credit-repair/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	broker *amqp.Connection
}

// New создает приложение: подключает зависимости, прогоняет миграции
// и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	objStorage, err := objectstorage.NewClient(ctx, cfg.ObjectStorage)
	if err != nil {
		return nil, err
	}

	brokerConn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	channel, err := rabbitmq.SetupChannel(brokerConn, rabbitmq.GetDisputeQueues())
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewDisputePublisher(channel)

	aiClient := aiprovider.NewClient(cfg.AIProvider)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.NewAuthService(db, jwtMaker, logger)
	intakeService := intakeservice.NewIntakeService(db, objStorage, cfg.UploadURLTTL, logger)
	disputeService := disputeservice.NewDisputeService(db, objStorage, aiClient, aiClient, publisher, cacheRedis, logger)
	ledgerService := ledgerservice.NewLedgerService(db, cfg.Billing, logger)
	affiliateService := affiliateservice.NewAffiliateService(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg,
		authService, intakeService, disputeService, ledgerService, affiliateService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		broker: brokerConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		if cerr := a.broker.Close(); cerr != nil {
			a.logger.Error("failed to close broker connection", slog.String("error", cerr.Error()))
		}
		return err
	}
}
