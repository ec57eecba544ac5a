package paymentprovider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/glift-app/glift-billing/internal/models"
)

// ConstructEvent проверяет подпись вебхука и переводит событие Stripe
// в доменное событие. Необработанные типы возвращаются без снимков.
func (c *Client) ConstructEvent(payload []byte, signature string) (models.BillingEvent, error) {
	const op = "paymentprovider.ConstructEvent"

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return models.BillingEvent{}, fmt.Errorf("%s: %w: %w", op, models.ErrInvalidSignature, err)
	}

	be := models.BillingEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return be, nil
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted,
		stripe.EventTypeCustomerSubscriptionTrialWillEnd:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return models.BillingEvent{}, fmt.Errorf("%s: decode subscription: %w: %w", op, models.ErrInvalidRequest, err)
		}
		ext := toExternalSubscription(&sub)
		be.Subscription = &ext
	case stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return models.BillingEvent{}, fmt.Errorf("%s: decode invoice: %w: %w", op, models.ErrInvalidRequest, err)
		}
		be.Invoice = &models.ExternalInvoice{
			ID:           inv.ID,
			AttemptCount: inv.AttemptCount,
		}
		if inv.Customer != nil {
			be.Invoice.CustomerID = inv.Customer.ID
		}
	}
	return be, nil
}
