// Package intake выдаёт подписанные ссылки для загрузки кредитных отчетов в объектное хранилище.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/credoria/credit-repair/internal/models"
)

const reportContentType = "application/pdf"

// ReportRepository описывает контракт для создания записей об отчетах.
type ReportRepository interface {
	CreateReport(ctx context.Context, userUID, storageKey string) (string, error)
}

// Presigner описывает контракт для генерации подписанных URL загрузки.
type Presigner interface {
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

// IntakeService создает запись об отчете и подписанный URL для его загрузки.
type IntakeService struct {
	reports      ReportRepository
	presigner    Presigner
	uploadURLTTL time.Duration
	log          *slog.Logger
}

// NewIntakeService создает новый экземпляр IntakeService.
func NewIntakeService(reports ReportRepository, presigner Presigner, uploadURLTTL time.Duration, log *slog.Logger) *IntakeService {
	return &IntakeService{
		reports:      reports,
		presigner:    presigner,
		uploadURLTTL: uploadURLTTL,
		log:          log,
	}
}

// BeginUpload регистрирует отчет в статусе upload_pending и возвращает подписанный URL.
// Ключ объекта формируется на стороне сервера, клиент не влияет на путь в хранилище.
func (s *IntakeService) BeginUpload(ctx context.Context, userUID string) (*models.UploadSlot, error) {
	const op = "intake.BeginUpload"

	storageKey := fmt.Sprintf("reports/%s/%s.pdf", userUID, uuid.NewString())

	reportID, err := s.reports.CreateReport(ctx, userUID, storageKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uploadURL, err := s.presigner.PresignUpload(ctx, storageKey, reportContentType, s.uploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("upload slot issued",
		slog.String("report_id", reportID),
		slog.String("user_uid", userUID))

	return &models.UploadSlot{
		ReportID:  reportID,
		UploadURL: uploadURL,
		ExpiresAt: time.Now().Add(s.uploadURLTTL),
	}, nil
}
