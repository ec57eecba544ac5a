package paymentprovider

import (
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/glift-app/glift-billing/internal/models"
)

// unixTime переводит unix-секунды Stripe в UTC; ноль означает отсутствие значения.
func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func toExternalSubscription(s *stripe.Subscription) models.ExternalSubscription {
	if s == nil {
		return models.ExternalSubscription{}
	}
	ext := models.ExternalSubscription{
		ID:                s.ID,
		Status:            models.SubscriptionStatus(s.Status),
		TrialEnd:          unixTime(s.TrialEnd),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		ext.CustomerID = s.Customer.ID
	}
	if s.Items != nil {
		var periodEnd int64
		for _, item := range s.Items.Data {
			if item == nil {
				continue
			}
			if ext.PriceID == "" && item.Price != nil {
				ext.PriceID = item.Price.ID
			}
			if item.CurrentPeriodEnd > periodEnd {
				periodEnd = item.CurrentPeriodEnd
			}
		}
		ext.PeriodEnd = unixTime(periodEnd)
	}
	return ext
}
