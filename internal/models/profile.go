package models

import "time"

// Plan тариф пользователя.
type Plan string

const (
	// PlanStarter бесплатный тариф.
	PlanStarter Plan = "starter"
	// PlanPremium платный тариф.
	PlanPremium Plan = "premium"
)

// Valid сообщает, является ли значение известным тарифом.
func (p Plan) Valid() bool {
	return p == PlanStarter || p == PlanPremium
}

// Profile локальная запись о подписке пользователя, одна на пользователя.
// SubscriptionPlan равен nil, если тариф ещё ни разу не вычислялся.
type Profile struct {
	UserID            string     `json:"id"`
	SubscriptionPlan  *Plan      `json:"subscription_plan"`
	PremiumTrialEndAt *time.Time `json:"premium_trial_end_at"`
	PremiumEndAt      *time.Time `json:"premium_end_at"`
	Cancellation      bool       `json:"cancellation"`
	Trial             bool       `json:"trial"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ProfileState поля профиля, выводимые из состояния внешнего биллинга.
// Trial применяется к хранилищу как защёлка: trial = trial OR Trial.
type ProfileState struct {
	Plan              Plan
	PremiumEndAt      *time.Time
	PremiumTrialEndAt *time.Time
	Cancellation      bool
	Trial             bool
}
