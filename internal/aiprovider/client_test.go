package aiprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credoria/credit-repair/internal/models"
)

func newTestClient(url string) *Client {
	return &Client{
		apiKey:     "test-key",
		baseURL:    url,
		retryDelay: 10 * time.Millisecond,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func messagesReply(t *testing.T, text string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"content": []map[string]string{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	})
	require.NoError(t, err)
	return raw
}

func TestClient_Analyze(t *testing.T) {
	tests := []struct {
		name      string
		modelText string
		status    int
		wantErr   bool
		check     func(t *testing.T, got *models.ReportAnalysis)
	}{
		{
			name: "успешный анализ отчёта",
			modelText: `{"summary":"two late payments","action_items":["dispute late payment"],
				"disputable_items":[{"item":"Late payment 03/2024","reason":"never late","success_probability":70}],
				"progress_score":55}`,
			status: http.StatusOK,
			check: func(t *testing.T, got *models.ReportAnalysis) {
				assert.Equal(t, "two late payments", got.Summary)
				assert.Len(t, got.DisputableItems, 1)
				assert.Equal(t, 70, got.DisputableItems[0].SuccessProbability)
				assert.Equal(t, 55, got.ProgressScore)
			},
		},
		{
			name:      "модель вернула текст вокруг JSON",
			modelText: "Here is the result:\n{\"summary\":\"ok\",\"action_items\":[],\"disputable_items\":[],\"progress_score\":10}\nDone.",
			status:    http.StatusOK,
			check: func(t *testing.T, got *models.ReportAnalysis) {
				assert.Equal(t, "ok", got.Summary)
			},
		},
		{
			name:      "невалидный JSON в ответе",
			modelText: "sorry, cannot help",
			status:    http.StatusOK,
			wantErr:   true,
		},
		{
			name:    "ошибка API без ретрая",
			status:  http.StatusBadRequest,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
				if tt.status != http.StatusOK {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write(messagesReply(t, tt.modelText))
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			got, err := client.Analyze(context.Background(), "report text")

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrAnalysis)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestClient_Draft(t *testing.T) {
	info := models.PersonalInfo{
		FullName:    "Ivan Petrov",
		DateOfBirth: "1990-04-12",
		Address:     "1 Main St, Springfield",
	}

	t.Run("успешная генерация пакета писем", func(t *testing.T) {
		documents := map[string]string{
			models.DocumentBureauEquifax:      "Dear Equifax...",
			models.DocumentBureauExperian:     "Dear Experian...",
			models.DocumentBureauTransUnion:   "Dear TransUnion...",
			models.DocumentInquiryDispute:     "To whom it may concern...",
			models.DocumentInformationRequest: "Under FCRA section 609...",
			models.DocumentImprovementPlan:    "Step 1...",
		}
		raw, err := json.Marshal(documents)
		require.NoError(t, err)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(messagesReply(t, string(raw)))
		}))
		defer srv.Close()

		got, err := newTestClient(srv.URL).Draft(context.Background(), "report text", info)
		require.NoError(t, err)
		assert.Equal(t, documents, got)
	})

	t.Run("пустой пакет писем - ошибка", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(messagesReply(t, "{}"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Draft(context.Background(), "report text", info)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDrafting)
	})

	t.Run("retry на 429 с последующим успехом", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write(messagesReply(t, `{"improvement_plan":"Step 1..."}`))
		}))
		defer srv.Close()

		got, err := newTestClient(srv.URL).Draft(context.Background(), "report text", info)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, "Step 1...", got[models.DocumentImprovementPlan])
	})
}
