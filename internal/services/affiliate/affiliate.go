// Package affiliate отдаёт аффилиату список приглашённых пользователей и комиссию.
package affiliate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/credoria/credit-repair/internal/models"
)

// Repository описывает контракт хранилища для отчётов аффилиата.
type Repository interface {
	ListReferrals(ctx context.Context, affiliateUID string) ([]*models.Referral, error)
}

// AffiliateService отвечает за отчёт по приглашённым пользователям.
type AffiliateService struct {
	repo Repository
	log  *slog.Logger
}

// NewAffiliateService создает новый экземпляр AffiliateService.
func NewAffiliateService(repo Repository, log *slog.Logger) *AffiliateService {
	return &AffiliateService{repo: repo, log: log}
}

// ListEarnings возвращает приглашённых пользователей аффилиата и комиссию по каждому.
// Пустой список - штатный результат для пользователя без приглашённых.
func (s *AffiliateService) ListEarnings(ctx context.Context, affiliateUID string) ([]*models.Referral, error) {
	const op = "affiliate.ListEarnings"

	referrals, err := s.repo.ListReferrals(ctx, affiliateUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return referrals, nil
}
