package models

import "time"

// SubscriptionStatus статус подписки во внешнем биллинге.
type SubscriptionStatus string

const (
	StatusActive            SubscriptionStatus = "active"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusUnpaid            SubscriptionStatus = "unpaid"
	StatusPaused            SubscriptionStatus = "paused"
	// StatusNone означает, что авторитетной подписки нет.
	StatusNone SubscriptionStatus = "none"
)

// ExternalSubscription снимок подписки внешнего биллинга.
// Временные метки уже переведены из unix-секунд в UTC.
type ExternalSubscription struct {
	ID                string
	CustomerID        string
	Status            SubscriptionStatus
	PriceID           string
	PeriodEnd         *time.Time
	TrialEnd          *time.Time
	CancelAtPeriodEnd bool
	Metadata          map[string]string
}

// EffectiveSubscription тариф, который пользователь имеет прямо сейчас.
type EffectiveSubscription struct {
	Status         SubscriptionStatus `json:"status"`
	Plan           Plan               `json:"plan"`
	PeriodEnd      *time.Time         `json:"period_end,omitempty"`
	TrialEnd       *time.Time         `json:"trial_end,omitempty"`
	WillCancel     bool               `json:"will_cancel"`
	SubscriptionID string             `json:"subscription_id,omitempty"`
	// HasHistory равен true, если у клиента найдена хоть одна подписка,
	// включая отменённые.
	HasHistory bool `json:"has_history"`
}

// CreateSubscriptionParams параметры создания подписки.
type CreateSubscriptionParams struct {
	CustomerID      string
	PriceID         string
	TrialDays       int64
	PaymentBehavior string
	UserID          string
}

// CreatedSubscription результат создания подписки вместе с секретами
// для подтверждения оплаты на клиенте.
type CreatedSubscription struct {
	Subscription              ExternalSubscription
	SetupIntentClientSecret   string
	PaymentIntentClientSecret string
}

// SubscriptionChange результат запроса на смену тарифа.
type SubscriptionChange struct {
	Plan           Plan               `json:"plan"`
	Status         SubscriptionStatus `json:"status"`
	SubscriptionID string             `json:"subscription_id,omitempty"`
	ClientSecret   string             `json:"client_secret,omitempty"`
	WillCancel     bool               `json:"will_cancel"`
}

// ProfileState переводит вычисленную подписку в поля профиля.
// Trial отражает наличие любой подписки в истории клиента.
func (e EffectiveSubscription) ProfileState() ProfileState {
	return ProfileState{
		Plan:              e.Plan,
		PremiumEndAt:      e.PeriodEnd,
		PremiumTrialEndAt: e.TrialEnd,
		Cancellation:      e.WillCancel,
		Trial:             e.HasHistory,
	}
}
