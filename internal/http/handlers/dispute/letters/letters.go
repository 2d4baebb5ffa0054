// Package letters реализует HTTP-обработчик выдачи пакета писем завершённого диспута.
package letters

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

// Handler обрабатывает запросы на чтение пакета писем.
type Handler struct {
	log      *slog.Logger // Логгер для записи операций и ошибок
	service  Service      // Сервис бизнес-логики диспутов
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики выдачи писем.
type Service interface {
	GetLetters(ctx context.Context, userUID, disputeID string) (*models.LetterPackage, error)
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
// @Summary Получить пакет писем диспута
// @Description Возвращает сгенерированные документы диспута в статусе letters_ready.
// @Tags Disputes
// @Produce  json
// @Param id path string true "Идентификатор диспута"
// @Success 200 {object} map[string]any "Пакет писем"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Диспут не найден"
// @Failure 409 {object} response.ErrorResponse "Письма ещё не готовы"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /disputes/{id}/letters [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dispute.letters"

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

	pkg, err := h.service.GetLetters(r.Context(), userUID, disputeID)
	if err != nil {
		switch {
		case errors.Is(err, dispute.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("dispute not found"))
		case errors.Is(err, dispute.ErrLettersNotReady):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("letters are not ready"))
		default:
			log.Error("failed to read letter package", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not read letter package"))
		}
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"dispute_id": pkg.DisputeID,
		"documents":  pkg.Documents,
		"created_at": pkg.CreatedAt,
	}))
}
