// Package customer определяет идентификатор клиента во внешнем биллинге
// для пользователя Glift. Это единственный путь получения такого
// идентификатора в сервисе.
package customer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/models"
)

// idempotencyNamespace пространство имён для ключей идемпотентности создания клиента.
var idempotencyNamespace = uuid.MustParse("5b7c8a3e-2f41-4d8e-9a6b-1c0e7f3d2a95")

// BillingClient операции внешнего биллинга, нужные резолверу.
type BillingClient interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, bool, error)
	CreateCustomer(ctx context.Context, email, userID, idempotencyKey string) (string, error)
}

// UserStore записывает атрибуты пользователя.
type UserStore interface {
	SetUserAttributes(ctx context.Context, userID string, attrs map[string]string) error
}

// Resolver находит или создаёт клиента внешнего биллинга.
type Resolver struct {
	billing  BillingClient
	users    UserStore
	log      *slog.Logger
	validate *validator.Validate
}

// NewResolver создаёт резолвер клиентов.
func NewResolver(log *slog.Logger, billing BillingClient, users UserStore) *Resolver {
	return &Resolver{
		billing:  billing,
		users:    users,
		log:      log,
		validate: validator.New(),
	}
}

// IdempotencyKey возвращает детерминированный ключ создания клиента для пользователя.
func IdempotencyKey(userID string) string {
	return "glift-customer-" + uuid.NewSHA1(idempotencyNamespace, []byte(userID)).String()
}

// Resolve возвращает идентификатор клиента для пользователя.
//
// Закешированный в атрибутах идентификатор возвращается без обращения
// к биллингу. Иначе клиент ищется по почте и при отсутствии создаётся
// с ключом идемпотентности, так что повторы и гонки не плодят дубликатов.
// Найденный идентификатор записывается в атрибуты пользователя; ошибка
// записи только логируется.
func (r *Resolver) Resolve(ctx context.Context, user models.User) (string, error) {
	const op = "services.customer.Resolve"
	log := r.log.With(
		slog.String("op", op),
		slog.String("user_id", user.ID),
	)

	if customerID := user.CachedCustomerID(); customerID != "" {
		return customerID, nil
	}

	if err := r.validate.Var(user.Email, "required,email"); err != nil {
		log.Warn("cannot resolve customer without valid email")
		return "", fmt.Errorf("%s: %w: missing or malformed email", op, models.ErrInvalidRequest)
	}

	customerID, found, err := r.billing.FindCustomerByEmail(ctx, user.Email)
	if err != nil {
		log.Error("failed to look up billing customer", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		customerID, err = r.billing.CreateCustomer(ctx, user.Email, user.ID, IdempotencyKey(user.ID))
		if err != nil {
			log.Error("failed to create billing customer", sl.Err(err))
			return "", fmt.Errorf("%s: %w", op, err)
		}
		log.Info("billing customer created", slog.String("customer_id", customerID))
	}

	err = r.users.SetUserAttributes(ctx, user.ID, map[string]string{
		models.AttrStripeCustomerID: customerID,
	})
	if err != nil {
		log.Warn("failed to cache customer id on user",
			slog.String("customer_id", customerID), sl.Err(err))
	}

	return customerID, nil
}
