// Package dispute реализует оркестрацию диспутов: создание со списанием кредита,
// асинхронный конечный автомат обработки отчёта и выдачу статусов клиенту.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/credoria/credit-repair/internal/lib/sl"
	"github.com/credoria/credit-repair/internal/metrics"
	"github.com/credoria/credit-repair/internal/models"
	"github.com/credoria/credit-repair/internal/storage/repository"
)

// Ошибки уровня сервиса. Наружу несуществующий и чужой диспут неразличимы:
// обе ситуации выражаются через ErrNotFound, чтобы не раскрывать чужие идентификаторы.
var (
	ErrNotFound            = errors.New("dispute: not found")
	ErrInsufficientCredits = errors.New("dispute: insufficient credits")
	ErrReportNotUploadable = errors.New("dispute: report is not available for processing")
	ErrLettersNotReady     = errors.New("dispute: letters are not ready")
)

// Шаги конечного автомата, по которым помечаются ошибки в метриках.
const (
	stepDownload = "download"
	stepAnalysis = "analysis"
	stepDrafting = "drafting"
	stepPersist  = "persist"
)

const viewCacheTTL = time.Hour

// Repository описывает контракт хранилища для оркестратора диспутов.
type Repository interface {
	CreateDisputeWithDebit(ctx context.Context, userUID, reportID string) (*models.Dispute, error)
	GetDispute(ctx context.Context, disputeID string) (*models.Dispute, error)
	AdvanceDisputeStatus(ctx context.Context, disputeID, from, to string) (int, error)
	SetDisputeError(ctx context.Context, disputeID, message string) error
	GetReport(ctx context.Context, reportID string) (*models.Report, error)
	SaveReportAnalysis(ctx context.Context, reportID string, analysis *models.ReportAnalysis) error
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	SaveLetterPackage(ctx context.Context, pkg models.LetterPackage) (int, error)
	GetLetterPackageByDisputeID(ctx context.Context, disputeID string) (*models.LetterPackage, error)
}

// ObjectStorage описывает контракт загрузки байтов отчёта из хранилища.
type ObjectStorage interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Analyzer описывает контракт сервиса анализа кредитного отчёта.
type Analyzer interface {
	Analyze(ctx context.Context, reportText string) (*models.ReportAnalysis, error)
}

// Drafter описывает контракт сервиса генерации писем.
type Drafter interface {
	Draft(ctx context.Context, reportText string, info models.PersonalInfo) (map[string]string, error)
}

// TaskPublisher описывает контракт публикации задач обработки в очередь.
type TaskPublisher interface {
	PublishDisputeTask(task models.DisputeTask) error
}

// ViewCache описывает контракт кэша представлений диспутов.
type ViewCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// DisputeService - оркестратор полного жизненного цикла диспута.
type DisputeService struct {
	repo      Repository
	storage   ObjectStorage
	analyzer  Analyzer
	drafter   Drafter
	publisher TaskPublisher
	cache     ViewCache
	log       *slog.Logger
}

// NewDisputeService создает новый экземпляр DisputeService.
func NewDisputeService(repo Repository, storage ObjectStorage, analyzer Analyzer,
	drafter Drafter, publisher TaskPublisher, cache ViewCache, log *slog.Logger) *DisputeService {
	return &DisputeService{
		repo:      repo,
		storage:   storage,
		analyzer:  analyzer,
		drafter:   drafter,
		publisher: publisher,
		cache:     cache,
		log:       log,
	}
}

// Create списывает один кредит, создаёт диспут и ставит задачу обработки в очередь.
// Списание, перевод отчёта в processing и вставка диспута выполняются в одной
// транзакции, поэтому при любом исходе баланс и список диспутов согласованы.
func (s *DisputeService) Create(ctx context.Context, userUID, reportID string) (*models.Dispute, error) {
	const op = "dispute.Create"

	report, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if report.UserUID != userUID {
		s.log.Warn("attempt to dispute foreign report",
			slog.String("report_id", reportID),
			slog.String("user_uid", userUID))
		return nil, ErrNotFound
	}

	d, err := s.repo.CreateDisputeWithDebit(ctx, userUID, reportID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCredits):
			return nil, ErrInsufficientCredits
		case errors.Is(err, repository.ErrReportNotUploadable):
			return nil, ErrReportNotUploadable
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.DisputesCreated.Inc()

	if err := s.publisher.PublishDisputeTask(models.DisputeTask{DisputeID: d.ID}); err != nil {
		// Кредит уже списан. Диспут переводится в терминальную ошибку,
		// чтобы клиент не ждал обработку, которая никогда не начнётся.
		s.log.Error("failed to enqueue dispute task", sl.Err(err),
			slog.String("dispute_id", d.ID))
		if ferr := s.repo.SetDisputeError(ctx, d.ID, "failed to enqueue processing task"); ferr != nil {
			s.log.Error("failed to mark dispute as errored", sl.Err(ferr))
		}
		metrics.DisputesFailed.WithLabelValues(stepPersist).Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("dispute created",
		slog.String("dispute_id", d.ID),
		slog.String("report_id", reportID))

	return d, nil
}

// Process выполняет конечный автомат обработки диспута. Вызывается воркером
// по сообщению из очереди. Повторная доставка безопасна: терминальный диспут
// пропускается, незавершённый возобновляется с текущего статуса, а переходы
// выполняются только из ожидаемого предшественника и не откатывают прогресс.
// Ошибка пайплайна терминальна, кредит за неудачную попытку не возвращается.
func (s *DisputeService) Process(ctx context.Context, disputeID string) error {
	const op = "dispute.Process"

	d, err := s.repo.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("task references unknown dispute", slog.String("dispute_id", disputeID))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if models.IsTerminal(d.Status) {
		s.log.Info("dispute already terminal, skipping",
			slog.String("dispute_id", disputeID),
			slog.String("status", d.Status))
		return nil
	}

	if d.Status == models.DisputeStatusQueued {
		if err := s.advance(ctx, disputeID, models.DisputeStatusQueued, models.DisputeStatusAnalyzingReport); err != nil {
			if errors.Is(err, errStatusRace) {
				return nil
			}
			return err
		}
		d.Status = models.DisputeStatusAnalyzingReport
	}

	report, err := s.repo.GetReport(ctx, d.ReportID)
	if err != nil {
		return s.fail(ctx, disputeID, stepDownload, err)
	}

	raw, err := s.storage.Download(ctx, report.StorageKey)
	if err != nil {
		return s.fail(ctx, disputeID, stepDownload, err)
	}
	reportText := string(raw)

	if d.Status == models.DisputeStatusAnalyzingReport {
		analysis, err := s.analyzer.Analyze(ctx, reportText)
		if err != nil {
			return s.fail(ctx, disputeID, stepAnalysis, err)
		}
		if err := s.repo.SaveReportAnalysis(ctx, d.ReportID, analysis); err != nil {
			// Анализ для этой попытки уже записан другим воркером - продолжаем со своим.
			if !errors.Is(err, repository.ErrAlreadyExists) {
				return s.fail(ctx, disputeID, stepPersist, err)
			}
		}

		if err := s.advance(ctx, disputeID, models.DisputeStatusAnalyzingReport, models.DisputeStatusGeneratingLetters); err != nil {
			if errors.Is(err, errStatusRace) {
				return nil
			}
			return err
		}
		d.Status = models.DisputeStatusGeneratingLetters
	}

	user, err := s.repo.GetUser(ctx, d.UserUID)
	if err != nil {
		return s.fail(ctx, disputeID, stepDrafting, err)
	}
	info, err := personalInfo(user)
	if err != nil {
		return s.fail(ctx, disputeID, stepDrafting, err)
	}

	documents, err := s.drafter.Draft(ctx, reportText, info)
	if err != nil {
		return s.fail(ctx, disputeID, stepDrafting, err)
	}

	pkg := models.LetterPackage{
		DisputeID: disputeID,
		UserUID:   d.UserUID,
		Documents: documents,
	}
	if _, err := s.repo.SaveLetterPackage(ctx, pkg); err != nil {
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return s.fail(ctx, disputeID, stepPersist, err)
		}
	}

	if err := s.advance(ctx, disputeID, models.DisputeStatusGeneratingLetters, models.DisputeStatusLettersReady); err != nil {
		if errors.Is(err, errStatusRace) {
			return nil
		}
		return err
	}
	metrics.DisputesCompleted.Inc()

	s.log.Info("dispute processed", slog.String("dispute_id", disputeID))
	return nil
}

// Get возвращает представление диспута для опрашивающего клиента.
// Терминальные представления кэшируются: они уже не изменятся.
func (s *DisputeService) Get(ctx context.Context, userUID, disputeID string) (*models.DisputeView, error) {
	const op = "dispute.Get"

	cacheKey := viewCacheKey(userUID, disputeID)
	var cached models.DisputeView
	if found, err := s.cache.Get(cacheKey, &cached); err != nil {
		s.log.Error("failed to read dispute view cache", sl.Err(err))
	} else if found {
		return &cached, nil
	}

	d, err := s.getOwned(ctx, userUID, disputeID, op)
	if err != nil {
		return nil, err
	}

	view := &models.DisputeView{
		ID:        d.ID,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
	if d.ErrorMessage != nil {
		view.ErrorMessage = *d.ErrorMessage
	}

	if models.IsTerminal(d.Status) {
		if err := s.cache.Set(cacheKey, view, viewCacheTTL); err != nil {
			s.log.Error("failed to cache dispute view", sl.Err(err))
		}
	}

	return view, nil
}

// GetLetters возвращает пакет писем завершённого диспута.
func (s *DisputeService) GetLetters(ctx context.Context, userUID, disputeID string) (*models.LetterPackage, error) {
	const op = "dispute.GetLetters"

	d, err := s.getOwned(ctx, userUID, disputeID, op)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DisputeStatusLettersReady {
		return nil, ErrLettersNotReady
	}

	pkg, err := s.repo.GetLetterPackageByDisputeID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLettersNotReady
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pkg, nil
}

// getOwned загружает диспут и проверяет владение. Для чужого диспута наружу
// возвращается ErrNotFound, факт попытки фиксируется в логе.
func (s *DisputeService) getOwned(ctx context.Context, userUID, disputeID, op string) (*models.Dispute, error) {
	d, err := s.repo.GetDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if d.UserUID != userUID {
		s.log.Warn("attempt to access foreign dispute",
			slog.String("dispute_id", disputeID),
			slog.String("user_uid", userUID))
		return nil, ErrNotFound
	}
	return d, nil
}

// advance переводит диспут из ожидаемого статуса в следующий. Нулевое число
// обновлённых строк означает, что другой прогон уже увёл диспут дальше
// или завершил его - текущий прогон прекращается без отката.
func (s *DisputeService) advance(ctx context.Context, disputeID, from, to string) error {
	const op = "dispute.advance"

	rows, err := s.repo.AdvanceDisputeStatus(ctx, disputeID, from, to)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		s.log.Info("dispute advanced concurrently, stopping this run",
			slog.String("dispute_id", disputeID),
			slog.String("attempted_status", to))
		return errStatusRace
	}
	return nil
}

// errStatusRace сигнализирует, что параллельный прогон уже продвинул диспут.
// Для воркера это штатное завершение без повторной доставки.
var errStatusRace = errors.New("dispute: already advanced by a concurrent run")

// fail помечает диспут терминальной ошибкой и фиксирует шаг в метриках.
// Возвращает nil: ошибка пайплайна терминальна и повторной доставки не требует.
func (s *DisputeService) fail(ctx context.Context, disputeID, step string, cause error) error {
	s.log.Error("dispute processing failed", sl.Err(cause),
		slog.String("dispute_id", disputeID),
		slog.String("step", step))

	if err := s.repo.SetDisputeError(ctx, disputeID, cause.Error()); err != nil {
		s.log.Error("failed to mark dispute as errored", sl.Err(err),
			slog.String("dispute_id", disputeID))
	}
	metrics.DisputesFailed.WithLabelValues(step).Inc()
	return nil
}

// personalInfo собирает анкетные поля для генерации писем.
// Отсутствие любого поля - терминальная ошибка: письма без имени,
// даты рождения или адреса бюро не примут.
func personalInfo(user *models.User) (models.PersonalInfo, error) {
	var missing []string
	if user.FullName == nil || *user.FullName == "" {
		missing = append(missing, "full_name")
	}
	if user.DateOfBirth == nil {
		missing = append(missing, "date_of_birth")
	}
	if user.Address == nil || *user.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return models.PersonalInfo{}, fmt.Errorf("profile is missing required fields: %v", missing)
	}
	return models.PersonalInfo{
		FullName:    *user.FullName,
		DateOfBirth: user.DateOfBirth.Format("2006-01-02"),
		Address:     *user.Address,
	}, nil
}

func viewCacheKey(userUID, disputeID string) string {
	return fmt.Sprintf("dispute_view:%s:%s", userUID, disputeID)
}
