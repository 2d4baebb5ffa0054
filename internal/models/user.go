// Package models содержит доменную модель пользователя сервиса,
// включающую учётные данные, баланс кредитов и анкетные поля,
// необходимые для генерации писем в кредитные бюро.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID         string     // Уникальный идентификатор пользователя
	Email        string     // Электронная почта
	Username     string     // Имя пользователя (уникальное)
	PasswordHash string     // Bcrypt-хэш пароля
	Role         string     // Роль: user или admin
	Plan         string     // Тарифный план (free, starter, pro)
	Credits      int        // Баланс кредитов, инвариант credits >= 0
	FullName     *string    // Полное имя (обязательно для генерации писем)
	DateOfBirth  *time.Time // Дата рождения (обязательна для генерации писем)
	Address      *string    // Почтовый адрес (обязателен для генерации писем)
	ReferralCode *string    // Реферальный код аффилиата, указанный при регистрации
	CreatedAt    time.Time  // Дата регистрации
}

// PersonalInfo содержит анкетные поля пользователя, которые подставляются
// в генерируемые письма. Собирается из User перед вызовом сервиса генерации.
type PersonalInfo struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"` // формат 2006-01-02
	Address     string `json:"address"`
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Email        string `json:"email" validate:"required,email"`                        // Электронная почта
	Username     string `json:"username" validate:"required,alphanum"`                  // Имя пользователя
	Password     string `json:"password" validate:"required,min=8"`                     // Пароль (минимум 8 символов)
	ReferralCode string `json:"referral_code,omitempty" validate:"omitempty,alphanum"` // Код аффилиата (опционально)
}

// DummyUpdateProfile используется для приёма анкетных данных из JSON-запроса.
// Все поля обязательны: без них невозможна генерация писем в кредитные бюро.
type DummyUpdateProfile struct {
	FullName    string `json:"full_name" validate:"required,min=2"`                   // Полное имя
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"` // Дата рождения
	Address     string `json:"address" validate:"required,min=5"`                     // Почтовый адрес
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Username string `json:"username" validate:"required"` // Имя пользователя
	Password string `json:"password" validate:"required"` // Пароль
}
