// Package paymentprovider реализует доступ к внешнему платёжному провайдеру
// (Stripe): поиск и создание клиентов, чтение и изменение подписок,
// проверку подписи вебхуков.
package paymentprovider

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/glift-app/glift-billing/internal/models"
)

// MetadataUserID ключ метаданных клиента и подписки с ID пользователя Glift.
const MetadataUserID = "user_id"

// ErrorCounter получает имя операции при каждой ошибке провайдера.
type ErrorCounter interface {
	ExternalError(operation string)
}

// Client клиент Stripe, созданный явно, без глобального stripe.Key.
type Client struct {
	api           *client.API
	webhookSecret string
	errors        ErrorCounter
}

// Option настраивает Client.
type Option func(*clientOptions)

type clientOptions struct {
	backends *stripe.Backends
	errors   ErrorCounter
}

// WithBackends подменяет транспорт Stripe (используется в тестах).
func WithBackends(backends *stripe.Backends) Option {
	return func(o *clientOptions) {
		o.backends = backends
	}
}

// WithErrorCounter подключает счётчик ошибок провайдера.
func WithErrorCounter(c ErrorCounter) Option {
	return func(o *clientOptions) {
		o.errors = c
	}
}

// NewClient создаёт клиента Stripe.
func NewClient(secretKey, webhookSecret string, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		api:           client.New(secretKey, o.backends),
		webhookSecret: webhookSecret,
		errors:        o.errors,
	}
}

func (c *Client) fail(op string, err error) error {
	if c.errors != nil {
		c.errors.ExternalError(op)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrExternalService, err)
}

// FindCustomerByEmail ищет клиента по почте, не более одного результата.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (string, bool, error) {
	const op = "paymentprovider.FindCustomerByEmail"
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)
	params.Single = true
	params.Context = ctx

	iter := c.api.Customers.List(params)
	if iter.Next() {
		return iter.Customer().ID, true, nil
	}
	if err := iter.Err(); err != nil {
		return "", false, c.fail(op, err)
	}
	return "", false, nil
}

// CreateCustomer создаёт клиента с ID пользователя в метаданных.
// Повтор с тем же ключом идемпотентности возвращает того же клиента.
func (c *Client) CreateCustomer(ctx context.Context, email, userID, idempotencyKey string) (string, error) {
	const op = "paymentprovider.CreateCustomer"
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			MetadataUserID: userID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", c.fail(op, err)
	}
	return cus.ID, nil
}

// GetCustomerUserID возвращает ID пользователя из метаданных клиента.
func (c *Client) GetCustomerUserID(ctx context.Context, customerID string) (string, bool, error) {
	const op = "paymentprovider.GetCustomerUserID"
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cus, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return "", false, c.fail(op, err)
	}
	if cus.Deleted {
		return "", false, nil
	}
	userID := cus.Metadata[MetadataUserID]
	return userID, userID != "", nil
}

// ListSubscriptions возвращает все подписки клиента, включая отменённые.
func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]models.ExternalSubscription, error) {
	const op = "paymentprovider.ListSubscriptions"
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	var subs []models.ExternalSubscription
	iter := c.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, toExternalSubscription(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, c.fail(op, err)
	}
	return subs, nil
}

// CreateSubscription создаёт подписку без списания до подтверждения
// способа оплаты и возвращает секреты для клиента.
func (c *Client) CreateSubscription(ctx context.Context, p models.CreateSubscriptionParams) (*models.CreatedSubscription, error) {
	const op = "paymentprovider.CreateSubscription"
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(p.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(p.PriceID)},
		},
		PaymentBehavior: stripe.String(p.PaymentBehavior),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
		Metadata: map[string]string{
			MetadataUserID: p.UserID,
		},
	}
	if p.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(p.TrialDays)
	}
	params.Context = ctx
	params.AddExpand("pending_setup_intent")
	params.AddExpand("latest_invoice.confirmation_secret")

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, c.fail(op, err)
	}

	created := &models.CreatedSubscription{
		Subscription: toExternalSubscription(sub),
	}
	if sub.PendingSetupIntent != nil {
		created.SetupIntentClientSecret = sub.PendingSetupIntent.ClientSecret
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret != nil {
		created.PaymentIntentClientSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
	}
	return created, nil
}

// SetCancelAtPeriodEnd включает или выключает отмену подписки в конце периода.
func (c *Client) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*models.ExternalSubscription, error) {
	const op = "paymentprovider.SetCancelAtPeriodEnd"
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, c.fail(op, err)
	}
	ext := toExternalSubscription(sub)
	return &ext, nil
}
