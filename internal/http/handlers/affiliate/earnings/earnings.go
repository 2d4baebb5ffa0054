// Package earnings реализует HTTP-обработчик отчёта аффилиата:
// список приглашённых пользователей и накопленная комиссия.
package earnings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/credoria/credit-repair/internal/http/middlewarectx"
	"github.com/credoria/credit-repair/internal/http/response"
	"github.com/credoria/credit-repair/internal/lib/sl"
	"github.com/credoria/credit-repair/internal/models"
)

// Handler обрабатывает запросы отчёта аффилиата.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис отчётов аффилиата
}

// Service описывает интерфейс бизнес-логики отчёта аффилиата.
type Service interface {
	ListEarnings(ctx context.Context, affiliateUID string) ([]*models.Referral, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отчёт аффилиата
// @Description Возвращает приглашённых пользователей и комиссию по каждому из них.
// @Tags Affiliate
// @Produce  json
// @Success 200 {object} map[string]any "Список приглашённых с комиссией"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /affiliate/earnings [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.affiliate.earnings"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	referrals, err := h.service.ListEarnings(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list referrals", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list referrals"))
		return
	}

	var total float64
	for _, ref := range referrals {
		total += ref.Commission
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"referrals":        referrals,
		"total_commission": total,
	}))
}
