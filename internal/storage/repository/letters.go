package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/credoria/credit-repair/internal/models"
)

// SaveLetterPackage сохраняет пакет сгенерированных писем для диспута.
// Уникальный индекс по dispute_id гарантирует не более одного пакета на диспут.
func (s *Storage) SaveLetterPackage(ctx context.Context, pkg models.LetterPackage) (int, error) {
	const op = "storage.SaveLetterPackage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	raw, err := json.Marshal(pkg.Documents)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO letter_packages (dispute_id, user_uid, documents)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID int
	err = s.DB.QueryRowContext(ctx, query, pkg.DisputeID, pkg.UserUID, raw).Scan(&newID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetLetterPackageByDisputeID возвращает пакет писем диспута.
func (s *Storage) GetLetterPackageByDisputeID(ctx context.Context, disputeID string) (*models.LetterPackage, error) {
	const op = "storage.GetLetterPackageByDisputeID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, dispute_id, user_uid, documents, created_at
			  FROM letter_packages
			  WHERE dispute_id = $1`
	row := s.DB.QueryRowContext(ctx, query, disputeID)

	var result models.LetterPackage
	var raw []byte
	if err := row.Scan(&result.ID, &result.DisputeID, &result.UserUID,
		&raw, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(raw, &result.Documents); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}
