// Package paymentwebhook реализует приём вебхуков платёжного провайдера.
//
// Подпись запроса проверяется по HMAC-SHA256 от тела в заголовке X-Api-Signature.
// Начисление кредитов идемпотентно по идентификатору события: повторная
// доставка одного события провайдером не приводит к двойному начислению.
package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/credoria/credit-repair/internal/lib/sl"
)

// Service описывает интерфейс начисления кредитов по событию платежа.
type Service interface {
	ProcessPaymentSucceeded(ctx context.Context, eventID, userUID, plan, amount, currency string) error
}

// Handler обрабатывает вебхуки платёжного провайдера.
type Handler struct {
	log           *slog.Logger // Логгер для записи информации и ошибок
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый Handler с переданными логгером, сервисом и секретом подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Payload - тело вебхука платёжного провайдера.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`     // Идентификатор события у провайдера
		Status string `json:"status"` // Статус платежа
		Amount struct {
			Value    string `json:"value"`    // Сумма строкой, например "49.99"
			Currency string `json:"currency"` // Валюта
		} `json:"amount"`
		Metadata map[string]string `json:"metadata"` // user_uid, plan и др.
	} `json:"object"`
}

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	const paymentSucceeded = "payment.succeeded"

	switch strings.ToLower(payload.Event) {
	case paymentSucceeded:
		userUID := payload.Object.Metadata["user_uid"]
		plan := payload.Object.Metadata["plan"]
		if userUID == "" || plan == "" {
			log.Error("webhook metadata is incomplete",
				slog.String("event_id", payload.Object.ID))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		err := h.service.ProcessPaymentSucceeded(r.Context(),
			payload.Object.ID, userUID, plan,
			payload.Object.Amount.Value, payload.Object.Amount.Currency)
		if err != nil {
			log.Error("failed to process payment event", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		log.Info("ignored webhook event", slog.String("event", payload.Event))
	}

	log.Info("webhook processed successfully",
		slog.String("event", payload.Event),
		slog.String("event_id", payload.Object.ID))
	w.WriteHeader(http.StatusOK)
}
