package models

import "time"

// PaymentEvent представляет обработанное событие платёжного вебхука.
// Уникальность по EventID гарантирует, что повторная доставка одного
// события не приведёт к повторному начислению кредитов.
type PaymentEvent struct {
	ID             int       `json:"id"`
	EventID        string    `json:"event_id"`        // Идентификатор события у платёжного провайдера
	UserUID        string    `json:"user_uid"`        // Пользователь, которому начислены кредиты
	CreditsGranted int       `json:"credits_granted"` // Количество начисленных кредитов
	Plan           string    `json:"plan"`            // Оплаченный тарифный план
	Amount         string    `json:"amount"`          // Сумма платежа, строкой как в вебхуке
	Currency       string    `json:"currency"`        // Валюта платежа
	CreatedAt      time.Time `json:"created_at"`
}

// Referral представляет привязку приглашённого пользователя к аффилиату
// и накопленную по его платежам комиссию.
type Referral struct {
	ID               int       `json:"id"`
	AffiliateUID     string    `json:"affiliate_uid"`     // Пользователь-аффилиат
	ReferredUID      string    `json:"referred_uid"`      // Приглашённый пользователь
	ReferredUsername string    `json:"referred_username"` // Имя приглашённого для отчёта
	Commission       float64   `json:"commission"`        // Накопленная комиссия
	CreatedAt        time.Time `json:"created_at"`
}
