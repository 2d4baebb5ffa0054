package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockService реализует интерфейс paymentwebhook.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessPaymentSucceeded(ctx context.Context, eventID, userUID, plan, amount, currency string) error {
	args := m.Called(ctx, eventID, userUID, plan, amount, currency)
	return args.Error(0)
}

const webhookSecret = "test-secret"

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	succeededBody := `{
		"event": "payment.succeeded",
		"object": {
			"id": "evt-1",
			"status": "succeeded",
			"amount": {"value": "49.99", "currency": "USD"},
			"metadata": {"user_uid": "user-1", "plan": "starter"}
		}
	}`

	tests := []struct {
		name           string
		body           string
		signature      string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name:      "успешное начисление кредитов",
			body:      succeededBody,
			signature: sign(succeededBody),
			setupMock: func(m *MockService) {
				m.On("ProcessPaymentSucceeded", mock.Anything,
					"evt-1", "user-1", "starter", "49.99", "USD").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "неверная подпись",
			body:           succeededBody,
			signature:      "bm90LWEtc2lnbmF0dXJl",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "отсутствует подпись",
			body:           succeededBody,
			signature:      "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "нерелевантное событие игнорируется",
			body: `{"event": "payment.canceled", "object": {"id": "evt-2"}}`,
			signature: sign(
				`{"event": "payment.canceled", "object": {"id": "evt-2"}}`),
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
		},
		{
			name: "неполные метаданные",
			body: `{"event": "payment.succeeded", "object": {"id": "evt-3", "metadata": {}}}`,
			signature: sign(
				`{"event": "payment.succeeded", "object": {"id": "evt-3", "metadata": {}}}`),
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "ошибка сервиса начисления",
			body:      succeededBody,
			signature: sign(succeededBody),
			setupMock: func(m *MockService) {
				m.On("ProcessPaymentSucceeded", mock.Anything,
					mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService, webhookSecret)

			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set("X-Api-Signature", tt.signature)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}
