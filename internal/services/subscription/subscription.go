// Package subscription вычисляет действующий тариф пользователя по данным
// внешнего биллинга, записывает его в профиль и обрабатывает запросы
// на смену тарифа.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/metrics"
	"github.com/glift-app/glift-billing/internal/models"
)

// PaymentBehaviorDefaultIncomplete откладывает списание до подтверждения способа оплаты.
const PaymentBehaviorDefaultIncomplete = "default_incomplete"

// CustomerResolver возвращает идентификатор клиента внешнего биллинга.
type CustomerResolver interface {
	Resolve(ctx context.Context, user models.User) (string, error)
}

// BillingClient операции с подписками во внешнем биллинге.
type BillingClient interface {
	ListSubscriptions(ctx context.Context, customerID string) ([]models.ExternalSubscription, error)
	CreateSubscription(ctx context.Context, p models.CreateSubscriptionParams) (*models.CreatedSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*models.ExternalSubscription, error)
}

// ProfileStore запись профилей.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfileState(ctx context.Context, userID string, st models.ProfileState) error
	SetCancellation(ctx context.Context, userID string, cancellation bool) error
}

// Cache хранит вычисленные подписки по клиенту.
type Cache interface {
	GetEffective(ctx context.Context, customerID string) (*models.EffectiveSubscription, bool, error)
	SetEffective(ctx context.Context, customerID string, eff models.EffectiveSubscription, ttl time.Duration) error
	InvalidateEffective(ctx context.Context, customerID string) error
}

// Metrics учитывает записи профиля.
type Metrics interface {
	ProfileWrite(source string)
}

// Options настройки синхронизатора.
type Options struct {
	PremiumPriceID string
	TrialDays      int64
	CacheTTL       time.Duration
}

// Service синхронизатор подписок.
type Service struct {
	resolver CustomerResolver
	billing  BillingClient
	profiles ProfileStore
	cache    Cache
	metrics  Metrics
	opts     Options
	log      *slog.Logger
}

// NewService создаёт синхронизатор. cache и m могут быть nil.
func NewService(log *slog.Logger, resolver CustomerResolver, billing BillingClient, profiles ProfileStore,
	cache Cache, m Metrics, opts Options) *Service {
	return &Service{
		resolver: resolver,
		billing:  billing,
		profiles: profiles,
		cache:    cache,
		metrics:  m,
		opts:     opts,
		log:      log,
	}
}

// GetEffectiveSubscription запрашивает все подписки клиента и вычисляет тариф.
// Пустой customerID означает отсутствие клиента: status none, тариф starter.
func (s *Service) GetEffectiveSubscription(ctx context.Context, customerID string) (models.EffectiveSubscription, error) {
	const op = "services.subscription.GetEffectiveSubscription"
	if customerID == "" {
		return Derive(nil, s.opts.PremiumPriceID), nil
	}

	subs, err := s.billing.ListSubscriptions(ctx, customerID)
	if err != nil {
		s.log.Error("failed to list subscriptions",
			slog.String("op", op), slog.String("customer_id", customerID), sl.Err(err))
		return models.EffectiveSubscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return Derive(subs, s.opts.PremiumPriceID), nil
}

// WriteBackToProfile записывает вычисленный тариф в профиль пользователя.
// Повторная запись того же состояния ничего не меняет.
func (s *Service) WriteBackToProfile(ctx context.Context, userID string, eff models.EffectiveSubscription) error {
	const op = "services.subscription.WriteBackToProfile"
	if err := s.profiles.UpsertProfileState(ctx, userID, eff.ProfileState()); err != nil {
		s.log.Error("failed to write profile",
			slog.String("op", op), slog.String("user_id", userID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.recordWrite(metrics.SourceSync)
	return nil
}

// Sync определяет клиента, вычисляет тариф и записывает его в профиль.
// Результат кешируется по клиенту; ошибки кеша только логируются.
func (s *Service) Sync(ctx context.Context, user models.User) (models.EffectiveSubscription, error) {
	const op = "services.subscription.Sync"
	log := s.log.With(slog.String("op", op), slog.String("user_id", user.ID))

	customerID, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return models.EffectiveSubscription{}, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("customer_id", customerID))

	if s.cache != nil {
		cached, found, err := s.cache.GetEffective(ctx, customerID)
		if err != nil {
			log.Warn("failed to read subscription cache", sl.Err(err))
		}
		if found {
			return *cached, nil
		}
	}

	eff, err := s.GetEffectiveSubscription(ctx, customerID)
	if err != nil {
		return models.EffectiveSubscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.WriteBackToProfile(ctx, user.ID, eff); err != nil {
		return models.EffectiveSubscription{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.SetEffective(ctx, customerID, eff, s.opts.CacheTTL); err != nil {
			log.Warn("failed to cache subscription", sl.Err(err))
		}
	}
	log.Debug("subscription synced", slog.String("plan", string(eff.Plan)), slog.String("status", string(eff.Status)))
	return eff, nil
}

// SetupSubscription оформляет тариф premium.
func (s *Service) SetupSubscription(ctx context.Context, user models.User) (models.SubscriptionChange, error) {
	return s.UpdateSubscription(ctx, user, models.PlanPremium)
}

// UpdateSubscription меняет тариф пользователя.
//
// premium без действующей подписки создаёт подписку (с пробным периодом,
// если у клиента не было подписок) и возвращает секрет подтверждения
// оплаты. premium при подписке, отменяемой в конце периода, снимает отмену.
// starter ставит действующую подписку на отмену в конце периода и сразу
// выставляет cancellation в профиле, не дожидаясь вебхука.
func (s *Service) UpdateSubscription(ctx context.Context, user models.User, plan models.Plan) (models.SubscriptionChange, error) {
	const op = "services.subscription.UpdateSubscription"
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", user.ID),
		slog.String("plan", string(plan)),
	)

	if !plan.Valid() {
		return models.SubscriptionChange{}, fmt.Errorf("%s: %w: unknown plan %q", op, models.ErrInvalidRequest, plan)
	}

	customerID, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return models.SubscriptionChange{}, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("customer_id", customerID))

	subs, err := s.billing.ListSubscriptions(ctx, customerID)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		return models.SubscriptionChange{}, fmt.Errorf("%s: %w", op, err)
	}
	eff := Derive(subs, s.opts.PremiumPriceID)

	var change models.SubscriptionChange
	if plan == models.PlanPremium {
		change, err = s.upgrade(ctx, log, user, customerID, eff)
	} else {
		change, err = s.downgrade(ctx, log, user, eff)
	}
	if err != nil {
		return models.SubscriptionChange{}, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, log, customerID)
	return change, nil
}

func (s *Service) upgrade(ctx context.Context, log *slog.Logger, user models.User, customerID string,
	eff models.EffectiveSubscription) (models.SubscriptionChange, error) {
	if eff.Plan == models.PlanPremium {
		if !eff.WillCancel {
			log.Info("premium already active")
			return changeFrom(eff), nil
		}
		sub, err := s.billing.SetCancelAtPeriodEnd(ctx, eff.SubscriptionID, false)
		if err != nil {
			log.Error("failed to resume subscription", slog.String("subscription_id", eff.SubscriptionID), sl.Err(err))
			return models.SubscriptionChange{}, err
		}
		if err := s.setCancellation(ctx, user.ID, false); err != nil {
			return models.SubscriptionChange{}, err
		}
		log.Info("subscription resumed", slog.String("subscription_id", sub.ID))
		return models.SubscriptionChange{
			Plan:           models.PlanPremium,
			Status:         sub.Status,
			SubscriptionID: sub.ID,
		}, nil
	}

	trialDays := s.opts.TrialDays
	if eff.HasHistory || s.hadTrial(ctx, log, user.ID) {
		trialDays = 0
	}

	created, err := s.billing.CreateSubscription(ctx, models.CreateSubscriptionParams{
		CustomerID:      customerID,
		PriceID:         s.opts.PremiumPriceID,
		TrialDays:       trialDays,
		PaymentBehavior: PaymentBehaviorDefaultIncomplete,
		UserID:          user.ID,
	})
	if err != nil {
		log.Error("failed to create subscription", sl.Err(err))
		return models.SubscriptionChange{}, err
	}

	secret := created.SetupIntentClientSecret
	if secret == "" {
		secret = created.PaymentIntentClientSecret
	}
	if secret == "" {
		log.Error("created subscription has no client secret",
			slog.String("subscription_id", created.Subscription.ID),
			slog.String("status", string(created.Subscription.Status)))
		return models.SubscriptionChange{}, fmt.Errorf("subscription %s: %w", created.Subscription.ID, models.ErrClientSecretUnavailable)
	}

	log.Info("subscription created",
		slog.String("subscription_id", created.Subscription.ID),
		slog.Int64("trial_days", trialDays))

	derived := Derive([]models.ExternalSubscription{created.Subscription}, s.opts.PremiumPriceID)
	return models.SubscriptionChange{
		Plan:           derived.Plan,
		Status:         created.Subscription.Status,
		SubscriptionID: created.Subscription.ID,
		ClientSecret:   secret,
	}, nil
}

func (s *Service) downgrade(ctx context.Context, log *slog.Logger, user models.User,
	eff models.EffectiveSubscription) (models.SubscriptionChange, error) {
	if eff.Plan != models.PlanPremium {
		log.Info("no premium subscription to cancel")
		return changeFrom(eff), nil
	}

	status := eff.Status
	if !eff.WillCancel {
		sub, err := s.billing.SetCancelAtPeriodEnd(ctx, eff.SubscriptionID, true)
		if err != nil {
			log.Error("failed to schedule cancellation", slog.String("subscription_id", eff.SubscriptionID), sl.Err(err))
			return models.SubscriptionChange{}, err
		}
		status = sub.Status
	}
	if err := s.setCancellation(ctx, user.ID, true); err != nil {
		return models.SubscriptionChange{}, err
	}

	log.Info("subscription set to cancel at period end", slog.String("subscription_id", eff.SubscriptionID))
	return models.SubscriptionChange{
		Plan:           models.PlanPremium,
		Status:         status,
		SubscriptionID: eff.SubscriptionID,
		WillCancel:     true,
	}, nil
}

// setCancellation оптимистичная локальная запись до прихода вебхука.
func (s *Service) setCancellation(ctx context.Context, userID string, cancellation bool) error {
	if err := s.profiles.SetCancellation(ctx, userID, cancellation); err != nil {
		s.log.Error("failed to write cancellation flag", slog.String("user_id", userID), sl.Err(err))
		return err
	}
	s.recordWrite(metrics.SourceOptimistic)
	return nil
}

// hadTrial проверяет защёлку trial в профиле. Ошибка чтения не блокирует
// оформление: история подписок во внешнем биллинге уже проверена.
func (s *Service) hadTrial(ctx context.Context, log *slog.Logger, userID string) bool {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrProfileNotFound) {
			log.Warn("failed to read profile trial flag", sl.Err(err))
		}
		return false
	}
	return p.Trial
}

func (s *Service) invalidate(ctx context.Context, log *slog.Logger, customerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEffective(ctx, customerID); err != nil {
		log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}
}

func (s *Service) recordWrite(source string) {
	if s.metrics != nil {
		s.metrics.ProfileWrite(source)
	}
}

func changeFrom(eff models.EffectiveSubscription) models.SubscriptionChange {
	return models.SubscriptionChange{
		Plan:           eff.Plan,
		Status:         eff.Status,
		SubscriptionID: eff.SubscriptionID,
		WillCancel:     eff.WillCancel,
	}
}
