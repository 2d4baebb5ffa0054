// Package create реализует HTTP-обработчик создания диспута.
//
// Handler принимает JSON-запрос с идентификатором загруженного отчёта,
// валидирует его, извлекает UID пользователя из контекста и вызывает
// бизнес-логику создания диспута, которая атомарно списывает один кредит.
//
// В случае ошибок формируются соответствующие HTTP-ответы: нехватка кредитов
// возвращает 402, недоступный отчёт - 409, чужой или несуществующий - 404.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/credoria/credit-repair/internal/http/middlewarectx"
	"github.com/credoria/credit-repair/internal/http/response"
	"github.com/credoria/credit-repair/internal/lib/sl"
	"github.com/credoria/credit-repair/internal/models"
	"github.com/credoria/credit-repair/internal/services/dispute"
)

// Handler управляет HTTP-запросами на создание диспутов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики создания диспутов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания диспута.
type Service interface {
	Create(ctx context.Context, userUID, reportID string) (*models.Dispute, error)
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
// @Summary Создать диспут
// @Description Списывает один кредит и запускает асинхронную обработку загруженного отчёта.
// @Tags Disputes
// @Accept  json
// @Produce  json
// @Param request body models.DummyCreateDispute true "Идентификатор загруженного отчёта"
// @Success 200 {object} map[string]any "Созданный диспут"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Недостаточно кредитов"
// @Failure 404 {object} response.ErrorResponse "Отчёт не найден"
// @Failure 409 {object} response.ErrorResponse "Отчёт недоступен для обработки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /disputes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dispute.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCreateDispute
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	d, err := h.service.Create(r.Context(), userUID, req.ReportID)
	if err != nil {
		switch {
		case errors.Is(err, dispute.ErrInsufficientCredits):
			log.Info("dispute rejected: insufficient credits")
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("insufficient credits"))
		case errors.Is(err, dispute.ErrNotFound):
			log.Info("dispute rejected: report not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("report not found"))
		case errors.Is(err, dispute.ErrReportNotUploadable):
			log.Info("dispute rejected: report is not available")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("report is not available for processing"))
		default:
			log.Error("failed to create dispute", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create dispute"))
		}
		return
	}

	log.Info("dispute created", slog.String("dispute_id", d.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"dispute_id": d.ID,
		"status":     d.Status,
	}))
}
