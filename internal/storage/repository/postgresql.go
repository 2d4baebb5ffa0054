// Package repository реализует хранилище данных на основе PostgreSQL
// для пользователей, отчётов, диспутов и пакетов писем. Списание кредита
// и создание диспута выполняются одной транзакцией, поэтому баланс
// не может уйти в минус даже при конкурентных запросах.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки уровня хранилища, на которые опирается бизнес-логика.
var (
	// ErrNotFound - запись отсутствует.
	ErrNotFound = errors.New("repository: not found")
	// ErrInsufficientCredits - на балансе нет ни одного кредита.
	ErrInsufficientCredits = errors.New("repository: insufficient credits")
	// ErrReportNotUploadable - отчёт в статусе, не допускающем создание диспута.
	ErrReportNotUploadable = errors.New("repository: report is not available for processing")
	// ErrAlreadyExists - нарушение уникальности (дубликат пользователя, пакета писем).
	ErrAlreadyExists = errors.New("repository: already exists")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с доменными записями.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'disputes'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table disputes missing or query error: %w", err)
	}
	return nil
}
