// Package ledger начисляет кредиты по событиям платёжного вебхука,
// ведёт комиссию аффилиатов и отдаёт баланс кредитов пользователя.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/credoria/credit-repair/internal/config"
	"github.com/credoria/credit-repair/internal/lib/sl"
	"github.com/credoria/credit-repair/internal/metrics"
	"github.com/credoria/credit-repair/internal/models"
)

// ErrUnknownPlan - вебхук ссылается на тарифный план, которому не сопоставлены кредиты.
var ErrUnknownPlan = errors.New("ledger: unknown plan")

// Repository описывает контракт хранилища для платёжного реестра.
type Repository interface {
	// GrantCreditsIdempotent начисляет кредиты по событию, если событие ещё не обработано.
	// Возвращает false без ошибки при повторной доставке уже учтённого события.
	GrantCreditsIdempotent(ctx context.Context, event models.PaymentEvent) (bool, error)

	// FindAffiliateByReferral возвращает аффилиата приглашённого пользователя, если он есть.
	FindAffiliateByReferral(ctx context.Context, referredUID string) (string, bool, error)

	// AccrueCommission увеличивает накопленную комиссию по приглашённому пользователю.
	AccrueCommission(ctx context.Context, referredUID string, commission float64) error

	// GetCredits возвращает текущий баланс кредитов пользователя.
	GetCredits(ctx context.Context, userUID string) (int, error)
}

// LedgerService отвечает за кредиты: начисление по платежам и выдачу баланса.
type LedgerService struct {
	repo Repository
	cfg  config.Billing
	log  *slog.Logger
}

// NewLedgerService создает новый экземпляр LedgerService.
func NewLedgerService(repo Repository, cfg config.Billing, log *slog.Logger) *LedgerService {
	return &LedgerService{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
}

// ProcessPaymentSucceeded обрабатывает событие успешного платежа: начисляет
// кредиты по тарифу и, если плательщик был приглашён аффилиатом, комиссию.
// Повторная доставка события с тем же eventID - no-op.
func (s *LedgerService) ProcessPaymentSucceeded(ctx context.Context, eventID, userUID, plan, amount, currency string) error {
	const op = "ledger.ProcessPaymentSucceeded"

	credits, err := s.creditsForPlan(plan)
	if err != nil {
		return err
	}

	granted, err := s.repo.GrantCreditsIdempotent(ctx, models.PaymentEvent{
		EventID:        eventID,
		UserUID:        userUID,
		CreditsGranted: credits,
		Plan:           plan,
		Amount:         amount,
		Currency:       currency,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !granted {
		s.log.Info("duplicate payment event ignored", slog.String("event_id", eventID))
		return nil
	}

	metrics.CreditsGranted.Add(float64(credits))
	s.log.Info("credits granted",
		slog.String("event_id", eventID),
		slog.String("user_uid", userUID),
		slog.String("plan", plan),
		slog.Int("credits", credits))

	s.accrueCommission(ctx, userUID, amount)
	return nil
}

// accrueCommission начисляет аффилиату долю от платежа приглашённого пользователя.
// Ошибки комиссии не роняют обработку платежа: кредиты уже начислены.
func (s *LedgerService) accrueCommission(ctx context.Context, referredUID, amount string) {
	affiliateUID, found, err := s.repo.FindAffiliateByReferral(ctx, referredUID)
	if err != nil {
		s.log.Error("failed to look up affiliate", sl.Err(err))
		return
	}
	if !found {
		return
	}

	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		s.log.Error("payment amount is not a number", sl.Err(err),
			slog.String("amount", amount))
		return
	}
	commission := value * s.cfg.CommissionRate

	if err := s.repo.AccrueCommission(ctx, referredUID, commission); err != nil {
		s.log.Error("failed to accrue commission", sl.Err(err),
			slog.String("affiliate_uid", affiliateUID))
		return
	}

	s.log.Info("commission accrued",
		slog.String("affiliate_uid", affiliateUID),
		slog.Float64("commission", commission))
}

// GetBalance возвращает текущий баланс кредитов пользователя.
func (s *LedgerService) GetBalance(ctx context.Context, userUID string) (int, error) {
	const op = "ledger.GetBalance"

	credits, err := s.repo.GetCredits(ctx, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return credits, nil
}

func (s *LedgerService) creditsForPlan(plan string) (int, error) {
	switch plan {
	case "starter":
		return s.cfg.CreditsPlanStarter, nil
	case "pro":
		return s.cfg.CreditsPlanPro, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownPlan, plan)
	}
}
