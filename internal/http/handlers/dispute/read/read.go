// Package read реализует HTTP-обработчик опроса статуса диспута.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/credoria/credit-repair/internal/http/middlewarectx"
	"github.com/credoria/credit-repair/internal/http/response"
	"github.com/credoria/credit-repair/internal/lib/sl"
	"github.com/credoria/credit-repair/internal/models"
	"github.com/credoria/credit-repair/internal/services/dispute"
)

// Handler обрабатывает запросы на чтение статуса диспута.
type Handler struct {
	log      *slog.Logger // Логгер для записи операций и ошибок
	service  Service      // Сервис бизнес-логики диспутов
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики чтения диспута.
type Service interface {
	Get(ctx context.Context, userUID, disputeID string) (*models.DisputeView, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Получить статус диспута
// @Description Возвращает текущий статус диспута. Чужой диспут неотличим от несуществующего.
// @Tags Disputes
// @Produce  json
// @Param id path string true "Идентификатор диспута"
// @Success 200 {object} models.DisputeView "Представление диспута"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Диспут не найден"
// @Failure 422 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /disputes/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dispute.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	disputeID := chi.URLParam(r, "id")
	if err := h.validate.Var(disputeID, "required,uuid"); err != nil {
		log.Error("invalid dispute id", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("invalid dispute id"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	view, err := h.service.Get(r.Context(), userUID, disputeID)
	if err != nil {
		if errors.Is(err, dispute.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("dispute not found"))
			return
		}
		log.Error("failed to read dispute", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read dispute"))
		return
	}

	render.JSON(w, r, response.OKWithData(view))
}
