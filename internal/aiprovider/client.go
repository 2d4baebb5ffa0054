// Package aiprovider реализует клиент внешнего генеративного сервиса:
// анализ кредитного отчёта и генерацию пакета писем для оспаривания.
// Оба вызова требуют от модели строгий JSON, который разбирается
// в типизированные структуры домена.
package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/credoria/credit-repair/internal/config"
	"github.com/credoria/credit-repair/internal/models"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicModel   = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"
	maxRetries       = 3
	initialDelay     = 2 * time.Second
)

// Ошибки шагов генеративного конвейера.
var (
	// ErrAnalysis - сбой шага анализа отчёта.
	ErrAnalysis = errors.New("aiprovider: analysis failed")
	// ErrDrafting - сбой шага генерации писем.
	ErrDrafting = errors.New("aiprovider: letter drafting failed")
)

const analysisSystemPrompt = `You are a credit report analyst. Given the raw text of a consumer credit report,
respond with a single JSON object and nothing else:
{"summary": string, "action_items": [string], "disputable_items": [{"item": string, "reason": string, "success_probability": int 0-100}], "progress_score": int 0-100}`

const draftingSystemPrompt = `You are a credit dispute letter writer. Given a consumer credit report and the
consumer's personal details, respond with a single JSON object and nothing else, mapping document type to full letter text:
{"bureau_equifax": string, "bureau_experian": string, "bureau_transunion": string, "inquiry_dispute": string, "information_request": string, "improvement_plan": string}`

// Client клиент Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	retryDelay time.Duration
	httpClient *http.Client
}

// NewClient создаёт новый клиент генеративного сервиса.
func NewClient(cfg config.AIProvider) *Client {
	return &Client{
		apiKey:     cfg.AnthropicAPIKey,
		baseURL:    anthropicBaseURL,
		retryDelay: initialDelay,
		httpClient: &http.Client{Timeout: cfg.AITimeout},
	}
}

// Analyze выполняет анализ кредитного отчёта и возвращает структурированный результат.
func (c *Client) Analyze(ctx context.Context, reportText string) (*models.ReportAnalysis, error) {
	raw, err := c.complete(ctx, analysisSystemPrompt, reportText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysis, err)
	}

	var analysis models.ReportAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("%w: unexpected response format: %w", ErrAnalysis, err)
	}
	return &analysis, nil
}

// Draft генерирует пакет писем для оспаривания по отчёту и анкетным данным пользователя.
func (c *Client) Draft(ctx context.Context, reportText string, info models.PersonalInfo) (map[string]string, error) {
	prompt := fmt.Sprintf("Consumer details:\nFull name: %s\nDate of birth: %s\nAddress: %s\n\nCredit report:\n%s",
		info.FullName, info.DateOfBirth, info.Address, reportText)

	raw, err := c.complete(ctx, draftingSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDrafting, err)
	}

	var documents map[string]string
	if err := json.Unmarshal([]byte(raw), &documents); err != nil {
		return nil, fmt.Errorf("%w: unexpected response format: %w", ErrDrafting, err)
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: empty letter package", ErrDrafting)
	}
	return documents, nil
}

// complete отправляет запрос к Messages API с повторами на 429 и 5xx
// и возвращает текст первого текстового блока ответа.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "aiprovider.complete"
	if c.apiKey == "" {
		return "", fmt.Errorf("%s: api key is not set", op)
	}

	req := messagesRequest{
		Model:     anthropicModel,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: userPrompt},
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt))) * c.retryDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("%s: %w", op, ctx.Err())
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", op, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", op, err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%s: api error (%d): %s", op, resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var parsed messagesResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		for _, block := range parsed.Content {
			if block.Type == "text" {
				return extractJSON(block.Text), nil
			}
		}
		return "", fmt.Errorf("%s: response has no text content", op)
	}
	return "", lastErr
}

// extractJSON срезает обрамляющий текст вокруг JSON-объекта,
// если модель всё же добавила его вопреки промпту.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
