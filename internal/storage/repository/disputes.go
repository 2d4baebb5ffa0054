package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/credoria/credit-repair/internal/models"
)

// CreateDisputeWithDebit атомарно списывает один кредит, создаёт диспут
// в статусе queued и переводит отчёт в статус processing. Либо выполняются
// все три записи, либо ни одной: баланс блокируется через SELECT ... FOR UPDATE,
// поэтому при конкурентных вызовах кредит не может быть потрачен дважды,
// а второй запрос на тот же отчёт отклоняется по его статусу.
func (s *Storage) CreateDisputeWithDebit(ctx context.Context, userUID, reportID string) (*models.Dispute, error) {
	const op = "storage.CreateDisputeWithDebit"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var credits int
	err = tx.QueryRowContext(ctx,
		`SELECT credits FROM users WHERE uid = $1 FOR UPDATE`, userUID).Scan(&credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if credits < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInsufficientCredits)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE reports SET status = $1
		 WHERE id = $2 AND user_uid = $3 AND status = $4`,
		models.ReportStatusProcessing, reportID, userUID, models.ReportStatusUploadPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrReportNotUploadable)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET credits = credits - 1 WHERE uid = $1`, userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dispute := &models.Dispute{
		UserUID:  userUID,
		ReportID: reportID,
		Status:   models.DisputeStatusQueued,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO disputes (user_uid, report_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		userUID, reportID, models.DisputeStatusQueued).Scan(&dispute.ID, &dispute.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return dispute, nil
}

// GetDispute возвращает диспут по его ID.
func (s *Storage) GetDispute(ctx context.Context, disputeID string) (*models.Dispute, error) {
	const op = "storage.GetDispute"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, report_id, status, error_message, created_at
			  FROM disputes WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, disputeID)

	var result models.Dispute
	var errorMessage sql.NullString
	if err := row.Scan(&result.ID, &result.UserUID, &result.ReportID,
		&result.Status, &errorMessage, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if errorMessage.Valid {
		result.ErrorMessage = &errorMessage.String
	}
	return &result, nil
}

// AdvanceDisputeStatus переводит диспут из ожидаемого статуса в следующий.
// Переход выполняется только из указанного предшественника, поэтому повторная
// доставка или параллельный прогон не могут откатить статус назад.
// Возвращает количество обновлённых строк.
func (s *Storage) AdvanceDisputeStatus(ctx context.Context, disputeID, from, to string) (int, error) {
	const op = "storage.AdvanceDisputeStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE disputes
			  SET status = $1
			  WHERE id = $2 AND status = $3`
	result, err := s.DB.ExecContext(ctx, query, to, disputeID, from)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetDisputeError переводит диспут в терминальный статус error
// с сообщением об ошибке. Уже терминальный диспут не меняется.
func (s *Storage) SetDisputeError(ctx context.Context, disputeID, message string) error {
	const op = "storage.SetDisputeError"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE disputes
			  SET status = $1, error_message = $2
			  WHERE id = $3 AND status NOT IN ($1, $4)`
	_, err := s.DB.ExecContext(ctx, query,
		models.DisputeStatusError, message, disputeID, models.DisputeStatusLettersReady)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
