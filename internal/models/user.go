// Package models содержит доменные структуры биллинга Glift: пользователя,
// профиль с тарифом, снимки подписок внешнего платёжного провайдера
// и события вебхуков.
package models

import "time"

// AttrStripeCustomerID ключ атрибута пользователя, в котором кешируется
// идентификатор клиента во внешнем биллинге.
const AttrStripeCustomerID = "stripe_customer_id"

// User представляет пользователя, принадлежащего сервису аутентификации.
// Из атрибутов сервис биллинга читает и изредка записывает только
// идентификатор внешнего клиента.
type User struct {
	ID         string            `json:"id"`
	Email      string            `json:"email"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CachedCustomerID возвращает закешированный идентификатор внешнего клиента.
func (u User) CachedCustomerID() string {
	if u.Attributes == nil {
		return ""
	}
	return u.Attributes[AttrStripeCustomerID]
}
