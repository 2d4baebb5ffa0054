// Package sweeper периодически помечает брошенными отчёты,
// для которых загрузка так и не состоялась.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/credoria/credit-repair/internal/lib/sl"
)

// Repository описывает контракт хранилища для уборщика незавершённых загрузок.
type Repository interface {
	MarkAbandonedUploads(ctx context.Context, maxAge string) (int, error)
}

// SweeperService помечает брошенными записи upload_pending старше maxAge.
type SweeperService struct {
	repo     Repository
	interval time.Duration
	maxAge   time.Duration
	log      *slog.Logger
}

// NewSweeperService создает новый экземпляр SweeperService.
func NewSweeperService(repo Repository, interval, maxAge time.Duration, log *slog.Logger) *SweeperService {
	return &SweeperService{
		repo:     repo,
		interval: interval,
		maxAge:   maxAge,
		log:      log,
	}
}

// Run запускает цикл уборки до отмены контекста. Первый проход выполняется сразу.
func (s *SweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep выполняет один проход уборки.
func (s *SweeperService) Sweep(ctx context.Context) (int, error) {
	const op = "sweeper.Sweep"

	maxAge := fmt.Sprintf("%d seconds", int(s.maxAge.Seconds()))
	marked, err := s.repo.MarkAbandonedUploads(ctx, maxAge)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return marked, nil
}

func (s *SweeperService) sweep(ctx context.Context) {
	marked, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("sweep failed", sl.Err(err))
		return
	}
	if marked > 0 {
		s.log.Info("abandoned uploads marked", slog.Int("count", marked))
	}
}
