package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/credoria/credit-repair/internal/models"
)

func setupTestDb(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(3 * time.Minute),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")

	time.Sleep(3 * time.Second)

	port, err := postgresContainer.MappedPort(ctx, "5432")
	require.NoError(t, err, "Failed to get port")

	connStr := ConnString(port)

	var storage *Storage
	for i := 0; i < 10; i++ {
		storage, err = New(connStr)
		if err == nil {
			err = storage.DB.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	_, err = storage.DB.Exec(`
        CREATE EXTENSION IF NOT EXISTS "pgcrypto";

        CREATE TABLE users (
            uid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email TEXT NOT NULL UNIQUE,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'user',
            plan TEXT NOT NULL DEFAULT 'free',
            credits INT NOT NULL DEFAULT 0 CHECK (credits >= 0),
            full_name TEXT,
            date_of_birth DATE,
            address TEXT,
            referral_code TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE reports (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_uid UUID NOT NULL REFERENCES users(uid),
            storage_key TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'upload_pending',
            analysis JSONB,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE disputes (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_uid UUID NOT NULL REFERENCES users(uid),
            report_id UUID NOT NULL REFERENCES reports(id),
            status TEXT NOT NULL DEFAULT 'queued',
            error_message TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE letter_packages (
            id SERIAL PRIMARY KEY,
            dispute_id UUID NOT NULL UNIQUE REFERENCES disputes(id),
            user_uid UUID NOT NULL REFERENCES users(uid),
            documents JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE payment_events (
            id SERIAL PRIMARY KEY,
            event_id TEXT NOT NULL UNIQUE,
            user_uid UUID NOT NULL REFERENCES users(uid),
            credits_granted INT NOT NULL,
            plan TEXT NOT NULL,
            amount TEXT NOT NULL,
            currency TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE referrals (
            id SERIAL PRIMARY KEY,
            affiliate_uid UUID NOT NULL REFERENCES users(uid),
            referred_uid UUID NOT NULL UNIQUE REFERENCES users(uid),
            commission NUMERIC(12, 2) NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
    `)
	require.NoError(t, err, "Failed to create schema")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			storage.DB.Close()
		}
		if postgresContainer != nil {
			postgresContainer.Terminate(ctx)
		}
	}

	return storage, cleanup
}

func TestStorage_CreateDisputeWithDebit(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	t.Run("успешное создание списывает кредит и переводит отчёт в processing", func(t *testing.T) {
		userUID := factory.CreateUser(t, "debituser", 2)
		reportID := factory.CreateReport(t, userUID, models.ReportStatusUploadPending)

		d, err := storage.CreateDisputeWithDebit(ctx, userUID, reportID)
		require.NoError(t, err)
		assert.Equal(t, models.DisputeStatusQueued, d.Status)

		credits, err := storage.GetCredits(ctx, userUID)
		require.NoError(t, err)
		assert.Equal(t, 1, credits)

		report, err := storage.GetReport(ctx, reportID)
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusProcessing, report.Status)
	})

	t.Run("нулевой баланс отклоняется без изменений", func(t *testing.T) {
		userUID := factory.CreateUser(t, "brokeuser", 0)
		reportID := factory.CreateReport(t, userUID, models.ReportStatusUploadPending)

		_, err := storage.CreateDisputeWithDebit(ctx, userUID, reportID)
		assert.ErrorIs(t, err, ErrInsufficientCredits)

		report, err := storage.GetReport(ctx, reportID)
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusUploadPending, report.Status)
	})

	t.Run("повторный диспут по тому же отчёту отклоняется", func(t *testing.T) {
		userUID := factory.CreateUser(t, "repeatuser", 5)
		reportID := factory.CreateReport(t, userUID, models.ReportStatusUploadPending)

		_, err := storage.CreateDisputeWithDebit(ctx, userUID, reportID)
		require.NoError(t, err)

		_, err = storage.CreateDisputeWithDebit(ctx, userUID, reportID)
		assert.ErrorIs(t, err, ErrReportNotUploadable)

		credits, err := storage.GetCredits(ctx, userUID)
		require.NoError(t, err)
		assert.Equal(t, 4, credits)
	})
}

func TestStorage_CreateDisputeWithDebit_Concurrent(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	// Один кредит, восемь параллельных попыток: списание должно пройти ровно один раз.
	userUID := factory.CreateUser(t, "race", 1)

	const attempts = 8
	reportIDs := make([]string, attempts)
	for i := range reportIDs {
		reportIDs[i] = factory.CreateReport(t, userUID, models.ReportStatusUploadPending)
	}

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(reportID string) {
			defer wg.Done()
			_, err := storage.CreateDisputeWithDebit(ctx, userUID, reportID)
			results <- err
		}(reportIDs[i])
	}
	wg.Wait()
	close(results)

	var successes, rejected int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientCredits)
		rejected++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, rejected)

	credits, err := storage.GetCredits(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, 0, credits)

	var disputes int
	err = storage.DB.QueryRow(`SELECT COUNT(*) FROM disputes WHERE user_uid = $1`, userUID).Scan(&disputes)
	require.NoError(t, err)
	assert.Equal(t, 1, disputes)
}

func TestStorage_AdvanceDisputeStatus_Monotonic(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "monotonic", 0)
	reportID := factory.CreateReport(t, userUID, models.ReportStatusProcessing)
	disputeID := factory.CreateDispute(t, userUID, reportID, models.DisputeStatusQueued)

	rows, err := storage.AdvanceDisputeStatus(ctx, disputeID,
		models.DisputeStatusQueued, models.DisputeStatusAnalyzingReport)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	// Переход возможен только из ожидаемого предшественника
	rows, err = storage.AdvanceDisputeStatus(ctx, disputeID,
		models.DisputeStatusQueued, models.DisputeStatusAnalyzingReport)
	require.NoError(t, err)
	assert.Equal(t, 0, rows)

	rows, err = storage.AdvanceDisputeStatus(ctx, disputeID,
		models.DisputeStatusAnalyzingReport, models.DisputeStatusGeneratingLetters)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	// Отставший прогон не откатывает статус назад
	rows, err = storage.AdvanceDisputeStatus(ctx, disputeID,
		models.DisputeStatusQueued, models.DisputeStatusAnalyzingReport)
	require.NoError(t, err)
	assert.Equal(t, 0, rows)

	d, err := storage.GetDispute(ctx, disputeID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusGeneratingLetters, d.Status)

	rows, err = storage.AdvanceDisputeStatus(ctx, disputeID,
		models.DisputeStatusGeneratingLetters, models.DisputeStatusLettersReady)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	err = storage.SetDisputeError(ctx, disputeID, "late failure")
	require.NoError(t, err)

	d, err = storage.GetDispute(ctx, disputeID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusLettersReady, d.Status)
	assert.Nil(t, d.ErrorMessage)
}

func TestStorage_SaveReportAnalysis_Once(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "analysisuser", 0)
	reportID := factory.CreateReport(t, userUID, models.ReportStatusProcessing)

	analysis := &models.ReportAnalysis{
		Summary:       "two late payments on record",
		ActionItems:   []string{"dispute late payment from 2024"},
		ProgressScore: 55,
		DisputableItems: []models.DisputableItem{
			{Item: "late payment", Reason: "never late", SuccessProbability: 70},
		},
	}

	require.NoError(t, storage.SaveReportAnalysis(ctx, reportID, analysis))

	report, err := storage.GetReport(ctx, reportID)
	require.NoError(t, err)
	require.NotNil(t, report.Analysis)
	assert.Equal(t, analysis.Summary, report.Analysis.Summary)
	assert.Equal(t, models.ReportStatusAnalysisComplete, report.Status)

	// Повторная запись анализа отклоняется
	err = storage.SaveReportAnalysis(ctx, reportID, analysis)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestStorage_SaveLetterPackage_Unique(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "lettersuser", 0)
	reportID := factory.CreateReport(t, userUID, models.ReportStatusProcessing)
	disputeID := factory.CreateDispute(t, userUID, reportID, models.DisputeStatusGeneratingLetters)

	pkg := models.LetterPackage{
		DisputeID: disputeID,
		UserUID:   userUID,
		Documents: map[string]string{models.DocumentBureauEquifax: "Dear Equifax..."},
	}

	_, err := storage.SaveLetterPackage(ctx, pkg)
	require.NoError(t, err)

	_, err = storage.SaveLetterPackage(ctx, pkg)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := storage.GetLetterPackageByDisputeID(ctx, disputeID)
	require.NoError(t, err)
	assert.Equal(t, pkg.Documents, got.Documents)
}

func TestStorage_GrantCreditsIdempotent(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "paiduser", 0)

	event := models.PaymentEvent{
		EventID:        "evt-100",
		UserUID:        userUID,
		CreditsGranted: 3,
		Plan:           "starter",
		Amount:         "49.99",
		Currency:       "USD",
	}

	granted, err := storage.GrantCreditsIdempotent(ctx, event)
	require.NoError(t, err)
	assert.True(t, granted)

	// Повторная доставка того же события - no-op
	granted, err = storage.GrantCreditsIdempotent(ctx, event)
	require.NoError(t, err)
	assert.False(t, granted)

	credits, err := storage.GetCredits(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, 3, credits)
}

func TestStorage_Referrals(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	affiliateUID := factory.CreateUser(t, "partner", 0)
	referredUID := factory.CreateUser(t, "invited", 0)

	_, err := storage.CreateReferral(ctx, affiliateUID, referredUID)
	require.NoError(t, err)

	gotUID, found, err := storage.FindAffiliateByReferral(ctx, referredUID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, affiliateUID, gotUID)

	_, found, err = storage.FindAffiliateByReferral(ctx, affiliateUID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, storage.AccrueCommission(ctx, referredUID, 4.99))
	require.NoError(t, storage.AccrueCommission(ctx, referredUID, 5.01))

	referrals, err := storage.ListReferrals(ctx, affiliateUID)
	require.NoError(t, err)
	require.Len(t, referrals, 1)
	assert.Equal(t, "invited", referrals[0].ReferredUsername)
	assert.InDelta(t, 10.0, referrals[0].Commission, 0.001)
}

func TestStorage_MarkAbandonedUploads(t *testing.T) {
	storage, cleanup := setupTestDb(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "sweepuser", 0)
	staleID := factory.CreateReport(t, userUID, models.ReportStatusUploadPending)
	freshID := factory.CreateReport(t, userUID, models.ReportStatusUploadPending)
	processingID := factory.CreateReport(t, userUID, models.ReportStatusProcessing)

	_, err := storage.DB.Exec(
		`UPDATE reports SET created_at = NOW() - INTERVAL '2 days' WHERE id IN ($1, $2)`,
		staleID, processingID)
	require.NoError(t, err)

	marked, err := storage.MarkAbandonedUploads(ctx, "24 hours")
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	stale, err := storage.GetReport(ctx, staleID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusAbandoned, stale.Status)

	fresh, err := storage.GetReport(ctx, freshID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusUploadPending, fresh.Status)

	// Отчёт, уже взятый в обработку, уборка не трогает
	processing, err := storage.GetReport(ctx, processingID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, processing.Status)
}
