package models

import "time"

// Типы событий внешнего биллинга, которые обрабатывает сервис.
const (
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventTrialWillEnd         = "customer.subscription.trial_will_end"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// BillingEvent проверенное по подписи событие вебхука.
// Subscription заполняется для событий подписок, Invoice для событий счетов.
type BillingEvent struct {
	ID           string
	Type         string
	Created      time.Time
	Subscription *ExternalSubscription
	Invoice      *ExternalInvoice
}

// CustomerID возвращает клиента, к которому относится событие.
func (e BillingEvent) CustomerID() string {
	switch {
	case e.Subscription != nil:
		return e.Subscription.CustomerID
	case e.Invoice != nil:
		return e.Invoice.CustomerID
	default:
		return ""
	}
}

// ExternalInvoice минимальный снимок счёта.
type ExternalInvoice struct {
	ID           string
	CustomerID   string
	AttemptCount int64
}

// Виды уведомлений; значение используется как ключ маршрутизации.
const (
	NotificationTrialWillEnd  = "trial_will_end"
	NotificationPaymentFailed = "payment_failed"
)

// Notification сообщение для сервиса рассылок.
type Notification struct {
	Kind           string     `json:"kind"`
	UserID         string     `json:"user_uid"`
	CustomerID     string     `json:"customer_id"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	InvoiceID      string     `json:"invoice_id,omitempty"`
	TrialEnd       *time.Time `json:"trial_end,omitempty"`
	EventID        string     `json:"event_id"`
}
