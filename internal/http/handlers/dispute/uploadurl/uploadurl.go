// Package uploadurl реализует HTTP-обработчик выдачи подписанного URL
// для прямой загрузки кредитного отчёта в объектное хранилище.
package uploadurl

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

// Handler обрабатывает запросы на начало загрузки отчёта.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис выдачи слотов загрузки
}

// Service описывает интерфейс бизнес-логики выдачи слота загрузки.
type Service interface {
	BeginUpload(ctx context.Context, userUID string) (*models.UploadSlot, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить URL для загрузки отчёта
// @Description Создает запись об отчёте и возвращает временный подписанный URL для загрузки PDF.
// @Tags Reports
// @Produce  json
// @Success 200 {object} map[string]any "Слот загрузки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /reports/upload-url [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dispute.uploadurl"

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

	slot, err := h.service.BeginUpload(r.Context(), userUID)
	if err != nil {
		log.Error("failed to issue upload slot", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not issue upload url"))
		return
	}

	log.Info("upload slot issued", slog.String("report_id", slot.ReportID))
	render.JSON(w, r, response.OKWithData(slot))
}
