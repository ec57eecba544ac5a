// Package reconciler применяет события вебхуков внешнего биллинга
// к профилям пользователей. Доставка событий «хотя бы один раз»,
// поэтому применение идемпотентно.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/metrics"
	"github.com/glift-app/glift-billing/internal/models"
	"github.com/glift-app/glift-billing/internal/services/subscription"
)

// Outcome итог обработки события.
type Outcome string

const (
	// OutcomeProcessed событие применено.
	OutcomeProcessed Outcome = "processed"
	// OutcomeDuplicate событие уже применялось ранее.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored событие принято, но менять нечего.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFailed применение не удалось, провайдер повторит доставку.
	OutcomeFailed Outcome = "failed"
)

// UserStore сопоставляет клиентов внешнего биллинга пользователям.
type UserStore interface {
	FindUserIDByCustomerID(ctx context.Context, customerID string) (string, bool, error)
	SetUserAttributes(ctx context.Context, userID string, attrs map[string]string) error
}

// ProfileStore запись профилей.
type ProfileStore interface {
	UpsertProfileState(ctx context.Context, userID string, st models.ProfileState) error
	SetTrialEnd(ctx context.Context, userID string, trialEnd *time.Time) error
}

// BillingClient чтение клиента и подписок во внешнем биллинге.
type BillingClient interface {
	GetCustomerUserID(ctx context.Context, customerID string) (string, bool, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]models.ExternalSubscription, error)
}

// Cache хранит отметки обработанных событий и кеш подписок.
type Cache interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) error
	InvalidateEffective(ctx context.Context, customerID string) error
}

// Notifier отправляет уведомления пользователю.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Metrics учитывает события и записи профиля.
type Metrics interface {
	WebhookEvent(eventType, outcome string)
	ProfileWrite(source string)
}

// Options настройки обработчика событий.
type Options struct {
	PremiumPriceID    string
	ProcessedEventTTL time.Duration
}

// Reconciler применяет события биллинга к профилям.
type Reconciler struct {
	users    UserStore
	profiles ProfileStore
	billing  BillingClient
	cache    Cache
	notifier Notifier
	metrics  Metrics
	opts     Options
	log      *slog.Logger
}

// New создаёт обработчик событий. cache, notifier и m могут быть nil.
func New(log *slog.Logger, users UserStore, profiles ProfileStore, billing BillingClient,
	cache Cache, notifier Notifier, m Metrics, opts Options) *Reconciler {
	return &Reconciler{
		users:    users,
		profiles: profiles,
		billing:  billing,
		cache:    cache,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		log:      log,
	}
}

// HandleEvent применяет событие. Ошибка означает, что событие нужно
// доставить повторно; частичное применение успехом не считается.
func (r *Reconciler) HandleEvent(ctx context.Context, ev models.BillingEvent) (Outcome, error) {
	const op = "services.reconciler.HandleEvent"
	log := r.log.With(
		slog.String("op", op),
		slog.String("event_id", ev.ID),
		slog.String("event_type", ev.Type),
	)

	outcome, err := r.handle(ctx, log, ev)
	if err != nil {
		outcome = OutcomeFailed
	}
	if r.metrics != nil {
		r.metrics.WebhookEvent(ev.Type, string(outcome))
	}
	if err != nil {
		return outcome, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("billing event handled", slog.String("outcome", string(outcome)))
	return outcome, nil
}

func (r *Reconciler) handle(ctx context.Context, log *slog.Logger, ev models.BillingEvent) (Outcome, error) {
	if !handled(ev) {
		log.Debug("billing event type not handled")
		return OutcomeIgnored, nil
	}

	if r.cache != nil {
		seen, err := r.cache.IsEventProcessed(ctx, ev.ID)
		if err != nil {
			log.Warn("failed to check processed events", sl.Err(err))
		}
		if seen {
			return OutcomeDuplicate, nil
		}
	}

	customerID := ev.CustomerID()
	if customerID == "" {
		log.Warn("billing event without customer")
		return OutcomeIgnored, nil
	}
	log = log.With(slog.String("customer_id", customerID))

	userID, found, err := r.lookupUser(ctx, log, customerID)
	if err != nil {
		return OutcomeFailed, err
	}
	if !found {
		log.Warn("no user for billing customer")
		return OutcomeIgnored, nil
	}
	log = log.With(slog.String("user_id", userID))

	if err := r.apply(ctx, log, ev, customerID, userID); err != nil {
		return OutcomeFailed, err
	}

	if r.cache != nil {
		if err := r.cache.MarkEventProcessed(ctx, ev.ID, r.opts.ProcessedEventTTL); err != nil {
			log.Warn("failed to mark event processed", sl.Err(err))
		}
	}
	return OutcomeProcessed, nil
}

func (r *Reconciler) apply(ctx context.Context, log *slog.Logger, ev models.BillingEvent, customerID, userID string) error {
	switch ev.Type {
	case models.EventSubscriptionCreated, models.EventSubscriptionUpdated:
		eff := subscription.Derive([]models.ExternalSubscription{*ev.Subscription}, r.opts.PremiumPriceID)
		return r.writeState(ctx, log, customerID, userID, eff)

	case models.EventSubscriptionDeleted:
		subs, err := r.billing.ListSubscriptions(ctx, customerID)
		if err != nil {
			log.Error("failed to list subscriptions", sl.Err(err))
			return err
		}
		remaining := make([]models.ExternalSubscription, 0, len(subs))
		for _, s := range subs {
			if s.ID != ev.Subscription.ID {
				remaining = append(remaining, s)
			}
		}
		eff := subscription.Derive(remaining, r.opts.PremiumPriceID)
		eff.HasHistory = true
		return r.writeState(ctx, log, customerID, userID, eff)

	case models.EventTrialWillEnd:
		if err := r.profiles.SetTrialEnd(ctx, userID, ev.Subscription.TrialEnd); err != nil {
			log.Error("failed to write trial end", sl.Err(err))
			return err
		}
		r.recordWrite()
		r.invalidate(ctx, log, customerID)
		r.notify(ctx, log, models.Notification{
			Kind:           models.NotificationTrialWillEnd,
			UserID:         userID,
			CustomerID:     customerID,
			SubscriptionID: ev.Subscription.ID,
			TrialEnd:       ev.Subscription.TrialEnd,
			EventID:        ev.ID,
		})
		return nil

	case models.EventInvoicePaymentFailed:
		log.Warn("invoice payment failed",
			slog.String("invoice_id", ev.Invoice.ID),
			slog.Int64("attempt_count", ev.Invoice.AttemptCount))
		r.notify(ctx, log, models.Notification{
			Kind:       models.NotificationPaymentFailed,
			UserID:     userID,
			CustomerID: customerID,
			InvoiceID:  ev.Invoice.ID,
			EventID:    ev.ID,
		})
		return nil
	}
	return nil
}

func (r *Reconciler) writeState(ctx context.Context, log *slog.Logger, customerID, userID string, eff models.EffectiveSubscription) error {
	if err := r.profiles.UpsertProfileState(ctx, userID, eff.ProfileState()); err != nil {
		log.Error("failed to write profile", sl.Err(err))
		return err
	}
	r.recordWrite()
	r.invalidate(ctx, log, customerID)
	log.Info("profile reconciled",
		slog.String("plan", string(eff.Plan)),
		slog.String("status", string(eff.Status)),
		slog.Bool("cancellation", eff.WillCancel))
	return nil
}

// lookupUser ищет пользователя по закешированному ID клиента, а при
// неудаче по метаданным клиента в биллинге, дописывая найденную связь.
func (r *Reconciler) lookupUser(ctx context.Context, log *slog.Logger, customerID string) (string, bool, error) {
	userID, found, err := r.users.FindUserIDByCustomerID(ctx, customerID)
	if err != nil {
		log.Error("failed to look up user by customer", sl.Err(err))
		return "", false, err
	}
	if found {
		return userID, true, nil
	}

	userID, found, err = r.billing.GetCustomerUserID(ctx, customerID)
	if err != nil {
		log.Error("failed to read billing customer", sl.Err(err))
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	if _, err := uuid.Parse(userID); err != nil {
		log.Warn("billing customer carries malformed user id", slog.String("user_id", userID))
		return "", false, nil
	}

	err = r.users.SetUserAttributes(ctx, userID, map[string]string{
		models.AttrStripeCustomerID: customerID,
	})
	if errors.Is(err, models.ErrUserNotFound) {
		log.Warn("billing customer references unknown user", slog.String("user_id", userID))
		return "", false, nil
	}
	if err != nil {
		log.Warn("failed to backfill customer id on user", slog.String("user_id", userID), sl.Err(err))
	}
	return userID, true, nil
}

func (r *Reconciler) notify(ctx context.Context, log *slog.Logger, n models.Notification) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, n); err != nil {
		log.Warn("failed to publish notification", slog.String("kind", n.Kind), sl.Err(err))
	}
}

func (r *Reconciler) invalidate(ctx context.Context, log *slog.Logger, customerID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateEffective(ctx, customerID); err != nil {
		log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}
}

func (r *Reconciler) recordWrite() {
	if r.metrics != nil {
		r.metrics.ProfileWrite(metrics.SourceEvent)
	}
}

// handled сообщает, есть ли у события тип и снимок, которые нужно применять.
func handled(ev models.BillingEvent) bool {
	switch ev.Type {
	case models.EventSubscriptionCreated, models.EventSubscriptionUpdated,
		models.EventSubscriptionDeleted, models.EventTrialWillEnd:
		return ev.Subscription != nil
	case models.EventInvoicePaymentFailed:
		return ev.Invoice != nil
	default:
		return false
	}
}
