package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/credoria/credit-repair/internal/models"
)

// GrantCreditsIdempotent начисляет кредиты по событию платёжного вебхука.
// Событие и начисление выполняются одной транзакцией: если event_id уже
// обрабатывался, INSERT ... ON CONFLICT DO NOTHING не вставляет строку
// и начисление пропускается. Возвращает true, если кредиты были начислены.
func (s *Storage) GrantCreditsIdempotent(ctx context.Context, event models.PaymentEvent) (bool, error) {
	const op = "storage.GrantCreditsIdempotent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO payment_events (event_id, user_uid, credits_granted, plan, amount, currency)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.UserUID, event.CreditsGranted, event.Plan,
		event.Amount, event.Currency)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		// Повторная доставка уже обработанного события.
		return false, nil
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET credits = credits + $1, plan = $2 WHERE uid = $3`,
		event.CreditsGranted, event.Plan, event.UserUID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// CreateReferral привязывает приглашённого пользователя к аффилиату
// по реферальному коду, указанному при регистрации.
func (s *Storage) CreateReferral(ctx context.Context, affiliateUID, referredUID string) (int, error) {
	const op = "storage.CreateReferral"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO referrals (affiliate_uid, referred_uid)
			  VALUES ($1, $2) RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query, affiliateUID, referredUID).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindAffiliateByReferral возвращает UID аффилиата, пригласившего пользователя.
func (s *Storage) FindAffiliateByReferral(ctx context.Context, referredUID string) (string, bool, error) {
	const op = "storage.FindAffiliateByReferral"
	select {
	case <-ctx.Done():
		return "", false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT affiliate_uid FROM referrals WHERE referred_uid = $1`
	var affiliateUID string
	err := s.DB.QueryRowContext(ctx, query, referredUID).Scan(&affiliateUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return affiliateUID, true, nil
}

// AccrueCommission увеличивает накопленную комиссию аффилиата по платежу приглашённого.
func (s *Storage) AccrueCommission(ctx context.Context, referredUID string, commission float64) error {
	const op = "storage.AccrueCommission"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE referrals
			  SET commission = commission + $1
			  WHERE referred_uid = $2`
	_, err := s.DB.ExecContext(ctx, query, commission, referredUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListReferrals возвращает приглашённых пользователей аффилиата с накопленной комиссией.
func (s *Storage) ListReferrals(ctx context.Context, affiliateUID string) ([]*models.Referral, error) {
	const op = "storage.ListReferrals"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT r.id, r.affiliate_uid, r.referred_uid, u.username, r.commission, r.created_at
			  FROM referrals r
			  JOIN users u ON u.uid = r.referred_uid
			  WHERE r.affiliate_uid = $1
			  ORDER BY r.created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, affiliateUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Referral
	for rows.Next() {
		var r models.Referral
		if err := rows.Scan(&r.ID, &r.AffiliateUID, &r.ReferredUID,
			&r.ReferredUsername, &r.Commission, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
