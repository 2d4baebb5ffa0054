package intake_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/credoria/credit-repair/internal/services/intake"
)

// Мок для ReportRepository
type ReportRepoMock struct {
	mock.Mock
}

func (m *ReportRepoMock) CreateReport(ctx context.Context, userUID, storageKey string) (string, error) {
	args := m.Called(ctx, userUID, storageKey)
	return args.String(0), args.Error(1)
}

// Мок для Presigner
type PresignerMock struct {
	mock.Mock
}

func (m *PresignerMock) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, contentType, ttl)
	return args.String(0), args.Error(1)
}

func TestIntakeService_BeginUpload(t *testing.T) {
	const ttl = 15 * time.Minute

	tests := []struct {
		name       string
		setupMocks func(r *ReportRepoMock, p *PresignerMock)
		wantErr    bool
	}{
		{
			name: "успешная выдача слота загрузки",
			setupMocks: func(r *ReportRepoMock, p *PresignerMock) {
				r.On("CreateReport", mock.Anything, "user-1", mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "reports/user-1/") && strings.HasSuffix(key, ".pdf")
				})).Return("report-1", nil).Once()
				p.On("PresignUpload", mock.Anything, mock.Anything, "application/pdf", ttl).
					Return("https://storage.example.com/signed", nil).Once()
			},
		},
		{
			name: "ошибка создания записи об отчёте",
			setupMocks: func(r *ReportRepoMock, _ *PresignerMock) {
				r.On("CreateReport", mock.Anything, "user-1", mock.Anything).
					Return("", errors.New("db error")).Once()
			},
			wantErr: true,
		},
		{
			name: "ошибка подписания URL",
			setupMocks: func(r *ReportRepoMock, p *PresignerMock) {
				r.On("CreateReport", mock.Anything, "user-1", mock.Anything).
					Return("report-1", nil).Once()
				p.On("PresignUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("", errors.New("presign error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(ReportRepoMock)
			presigner := new(PresignerMock)
			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			svc := intake.NewIntakeService(repo, presigner, ttl, log)

			tt.setupMocks(repo, presigner)

			slot, err := svc.BeginUpload(context.Background(), "user-1")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, slot)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "report-1", slot.ReportID)
				assert.Equal(t, "https://storage.example.com/signed", slot.UploadURL)
				assert.WithinDuration(t, time.Now().Add(ttl), slot.ExpiresAt, 5*time.Second)
			}

			repo.AssertExpectations(t)
			presigner.AssertExpectations(t)
		})
	}
}
