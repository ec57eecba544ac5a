package subscription

import "github.com/glift-app/glift-billing/internal/models"

// Derive вычисляет действующий тариф по списку подписок клиента.
//
// Авторитетной считается первая подписка в статусе active или trialing
// с ценой premiumPriceID. Без неё клиент на тарифе starter, какие бы
// ещё подписки (past_due, canceled) у него ни были. HasHistory равен
// true при любой найденной подписке.
func Derive(subs []models.ExternalSubscription, premiumPriceID string) models.EffectiveSubscription {
	eff := models.EffectiveSubscription{
		Status:     models.StatusNone,
		Plan:       models.PlanStarter,
		HasHistory: len(subs) > 0,
	}
	for _, s := range subs {
		if !qualifies(s, premiumPriceID) {
			continue
		}
		eff.Status = s.Status
		eff.Plan = models.PlanPremium
		eff.PeriodEnd = s.PeriodEnd
		eff.TrialEnd = s.TrialEnd
		eff.WillCancel = s.CancelAtPeriodEnd
		eff.SubscriptionID = s.ID
		break
	}
	return eff
}

func qualifies(s models.ExternalSubscription, premiumPriceID string) bool {
	if s.Status != models.StatusActive && s.Status != models.StatusTrialing {
		return false
	}
	return premiumPriceID != "" && s.PriceID == premiumPriceID
}
