// Package auth содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/credoria/credit-repair/internal/lib/jwt"
	"github.com/credoria/credit-repair/internal/lib/password"
	"github.com/credoria/credit-repair/internal/lib/sl"
	"github.com/credoria/credit-repair/internal/models"
	"github.com/credoria/credit-repair/internal/storage/repository"
)

// ErrInvalidCredentials - неверная пара логин/пароль.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// CreateReferral привязывает приглашённого пользователя к аффилиату.
	CreateReferral(ctx context.Context, affiliateUID, referredUID string) (int, error)

	// UpdateProfile сохраняет анкетные поля пользователя.
	UpdateProfile(ctx context.Context, userUID string, info models.PersonalInfo) error
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной ролью "user".
// Реферальным кодом служит имя пользователя-аффилиата; если код указан и такой
// пользователь существует, регистрация привязывается к нему для начисления комиссии.
// Кредиты при регистрации не начисляются - их выдаёт платёжный вебхук.
func (s *AuthService) Register(ctx context.Context, req models.DummyRegister) (string, error) {
	const op = "auth.Register"

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hashed,
		Role:         "user",
		Plan:         "free",
		Credits:      0,
	}
	if req.ReferralCode != "" {
		user.ReferralCode = &req.ReferralCode
	}

	newUID, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	// Регистрация уже состоялась - проблемы с привязкой аффилиата её не отменяют.
	if req.ReferralCode != "" {
		affiliate, err := s.users.GetUserByUsername(ctx, req.ReferralCode)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.log.Warn("referral code does not match any user",
				slog.String("referral_code", req.ReferralCode))
		case err != nil:
			s.log.Error("failed to look up affiliate", sl.Err(err))
		default:
			if _, err := s.users.CreateReferral(ctx, affiliate.UUID, newUID); err != nil {
				s.log.Error("failed to create referral", sl.Err(err))
			}
		}
	}

	return newUID, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UUID)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return token, user.Role, nil
}

// UpdateProfile сохраняет анкетные поля, необходимые для генерации писем.
func (s *AuthService) UpdateProfile(ctx context.Context, userUID string, req models.DummyUpdateProfile) error {
	const op = "auth.UpdateProfile"

	info := models.PersonalInfo{
		FullName:    req.FullName,
		DateOfBirth: req.DateOfBirth,
		Address:     req.Address,
	}
	if err := s.users.UpdateProfile(ctx, userUID, info); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе и признак валидности.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Username: claims.Username,
		Role:     claims.Role,
		UUID:     claims.UserUID,
	}
	return user, true, nil
}
