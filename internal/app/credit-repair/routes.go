package creditrepair

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/credoria/credit-repair/internal/config"
	"github.com/credoria/credit-repair/internal/http/handlers/affiliate/earnings"
	"github.com/credoria/credit-repair/internal/http/handlers/auth/login"
	"github.com/credoria/credit-repair/internal/http/handlers/auth/register"
	"github.com/credoria/credit-repair/internal/http/handlers/credits/balance"
	disputecreate "github.com/credoria/credit-repair/internal/http/handlers/dispute/create"
	disputeletters "github.com/credoria/credit-repair/internal/http/handlers/dispute/letters"
	disputeread "github.com/credoria/credit-repair/internal/http/handlers/dispute/read"
	"github.com/credoria/credit-repair/internal/http/handlers/dispute/uploadurl"
	"github.com/credoria/credit-repair/internal/http/handlers/health"
	"github.com/credoria/credit-repair/internal/http/handlers/payment/paymentwebhook"
	"github.com/credoria/credit-repair/internal/http/handlers/user/profile"
	"github.com/credoria/credit-repair/internal/http/middlewarectx"
	affiliateservice "github.com/credoria/credit-repair/internal/services/affiliate"
	authservice "github.com/credoria/credit-repair/internal/services/auth"
	disputeservice "github.com/credoria/credit-repair/internal/services/dispute"
	intakeservice "github.com/credoria/credit-repair/internal/services/intake"
	ledgerservice "github.com/credoria/credit-repair/internal/services/ledger"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.AuthService,
	intakeService *intakeservice.IntakeService,
	disputeService *disputeservice.DisputeService,
	ledgerService *ledgerservice.LedgerService,
	affiliateService *affiliateservice.AffiliateService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Put("/profile", profile.New(logger, authService).ServeHTTP)
			r.Post("/reports/upload-url", uploadurl.New(logger, intakeService).ServeHTTP)
			r.Post("/disputes", disputecreate.New(logger, disputeService).ServeHTTP)
			r.Get("/disputes/{id}", disputeread.New(logger, disputeService).ServeHTTP)
			r.Get("/disputes/{id}/letters", disputeletters.New(logger, disputeService).ServeHTTP)
			r.Get("/credits", balance.New(logger, ledgerService).ServeHTTP)
			r.Get("/affiliate/earnings", earnings.New(logger, affiliateService).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", paymentwebhook.New(logger, ledgerService, cfg.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
