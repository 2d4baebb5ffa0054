package models

import "time"

// Статусы жизненного цикла загруженного кредитного отчёта.
const (
	ReportStatusUploadPending    = "upload_pending"    // Запись создана, байты ещё не загружены
	ReportStatusProcessing       = "processing"        // Отчёт взят в обработку диспутом
	ReportStatusAnalysisComplete = "analysis_complete" // Анализ завершён и сохранён
	ReportStatusAbandoned        = "abandoned"         // Загрузка так и не состоялась
)

// Report представляет один загруженный файл кредитного отчёта.
// Статус и результат анализа меняет только оркестратор диспутов,
// клиент напрямую запись не мутирует.
type Report struct {
	ID         string          // Уникальный идентификатор отчёта
	UserUID    string          // Владелец отчёта
	StorageKey string          // Ключ объекта в S3-хранилище
	Status     string          // Текущий статус жизненного цикла
	Analysis   *ReportAnalysis // Результат анализа, записывается не более одного раза за попытку
	CreatedAt  time.Time       // Дата создания записи
}

// ReportAnalysis — структурированный результат анализа кредитного отчёта,
// возвращаемый внешним сервисом анализа.
type ReportAnalysis struct {
	Summary         string           `json:"summary"`          // Краткое резюме кредитного профиля
	ActionItems     []string         `json:"action_items"`     // Рекомендованные шаги
	DisputableItems []DisputableItem `json:"disputable_items"` // Пункты, которые можно оспорить
	ProgressScore   int              `json:"progress_score"`   // Оценка прогресса 0-100
}

// DisputableItem описывает один оспариваемый пункт кредитного отчёта.
type DisputableItem struct {
	Item               string `json:"item"`                // Запись в отчёте
	Reason             string `json:"reason"`              // Основание для оспаривания
	SuccessProbability int    `json:"success_probability"` // Вероятность успеха 0-100
}

// UploadSlot возвращается клиенту при начале загрузки отчёта:
// идентификатор записи и временная ссылка для прямой загрузки байтов.
type UploadSlot struct {
	ReportID  string    `json:"report_id"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
