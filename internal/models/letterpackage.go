package models

import "time"

// Типы документов, входящих в пакет писем.
const (
	DocumentBureauEquifax      = "bureau_equifax"      // Письмо в Equifax
	DocumentBureauExperian     = "bureau_experian"     // Письмо в Experian
	DocumentBureauTransUnion   = "bureau_transunion"   // Письмо в TransUnion
	DocumentInquiryDispute     = "inquiry_dispute"     // Оспаривание запросов кредитной истории
	DocumentInformationRequest = "information_request" // Запрос сведений по статье FCRA
	DocumentImprovementPlan    = "improvement_plan"    // План улучшения кредитного профиля
)

// LetterPackage - результат шага генерации писем: именованный набор
// документов, связанный ровно с одним диспутом и одним пользователем.
// Создаётся не более одного раза на успешный диспут и после создания не меняется.
type LetterPackage struct {
	ID        int               // Идентификатор записи
	DisputeID string            // Диспут, для которого сгенерирован пакет
	UserUID   string            // Владелец пакета
	Documents map[string]string // Тексты документов по типу документа
	CreatedAt time.Time         // Дата генерации
}
