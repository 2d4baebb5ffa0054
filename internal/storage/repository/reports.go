package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/credoria/credit-repair/internal/models"
)

// CreateReport вставляет запись отчёта в статусе upload_pending и возвращает её ID.
func (s *Storage) CreateReport(ctx context.Context, userUID, storageKey string) (string, error) {
	const op = "storage.CreateReport"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO reports (user_uid, storage_key, status)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query, userUID, storageKey, models.ReportStatusUploadPending).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetReport возвращает отчёт по его ID.
func (s *Storage) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	const op = "storage.GetReport"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, storage_key, status, analysis, created_at
			  FROM reports WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, reportID)

	var result models.Report
	var analysisRaw []byte
	if err := row.Scan(&result.ID, &result.UserUID, &result.StorageKey,
		&result.Status, &analysisRaw, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(analysisRaw) > 0 {
		var analysis models.ReportAnalysis
		if err := json.Unmarshal(analysisRaw, &analysis); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.Analysis = &analysis
	}
	return &result, nil
}

// SaveReportAnalysis записывает результат анализа и переводит отчёт
// в статус analysis_complete. Повторная запись анализа в рамках одной
// попытки исключена условием analysis IS NULL.
func (s *Storage) SaveReportAnalysis(ctx context.Context, reportID string, analysis *models.ReportAnalysis) error {
	const op = "storage.SaveReportAnalysis"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE reports
			  SET analysis = $1, status = $2
			  WHERE id = $3 AND analysis IS NULL`
	result, err := s.DB.ExecContext(ctx, query, raw, models.ReportStatusAnalysisComplete, reportID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	return nil
}

// MarkAbandonedUploads помечает брошенными отчёты, которые остались
// в статусе upload_pending дольше заданного интервала. Возвращает
// количество обновлённых записей.
func (s *Storage) MarkAbandonedUploads(ctx context.Context, maxAge string) (int, error) {
	const op = "storage.MarkAbandonedUploads"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE reports
			  SET status = $1
			  WHERE status = $2 AND created_at < NOW() - $3::interval`
	result, err := s.DB.ExecContext(ctx, query,
		models.ReportStatusAbandoned, models.ReportStatusUploadPending, maxAge)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
