package models

import "time"

// Статусы конечного автомата диспута. Переходы строго монотонны:
// queued -> analyzing_report -> generating_letters -> letters_ready,
// из любого промежуточного статуса возможен переход в error.
// letters_ready и error - терминальные, после них запись не меняется.
const (
	DisputeStatusQueued            = "queued"
	DisputeStatusAnalyzingReport   = "analyzing_report"
	DisputeStatusGeneratingLetters = "generating_letters"
	DisputeStatusLettersReady      = "letters_ready"
	DisputeStatusError             = "error"
)

// Dispute представляет один оплаченный кредитом прогон обработки отчёта.
// Создаётся атомарно вместе со списанием кредита; повторная отправка
// не предусмотрена - для ретрая пользователь создаёт новый диспут.
type Dispute struct {
	ID           string    // Уникальный идентификатор диспута
	UserUID      string    // Владелец диспута
	ReportID     string    // Обрабатываемый отчёт
	Status       string    // Текущий статус конечного автомата
	ErrorMessage *string   // Сообщение об ошибке для статуса error
	CreatedAt    time.Time // Дата создания
}

// IsTerminal сообщает, достиг ли статус терминального состояния.
func IsTerminal(status string) bool {
	return status == DisputeStatusLettersReady || status == DisputeStatusError
}

// DisputeView - представление диспута, которое отдаётся опрашивающему клиенту.
type DisputeView struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// DisputeTask - сообщение, публикуемое в очередь при создании диспута.
// Воркер по нему запускает конечный автомат обработки.
type DisputeTask struct {
	DisputeID string `json:"dispute_id"`
}

// DummyCreateDispute используется для приёма данных из JSON-запроса на создание диспута.
type DummyCreateDispute struct {
	ReportID string `json:"report_id" validate:"required,uuid"` // Идентификатор загруженного отчёта
}
