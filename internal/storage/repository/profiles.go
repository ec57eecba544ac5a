package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glift-app/glift-billing/internal/models"
)

// GetProfile возвращает профиль пользователя.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, subscription_plan, premium_trial_end_at, premium_end_at,
			      cancellation, trial, updated_at
			  FROM profiles
			  WHERE id = $1`
	var (
		p                   models.Profile
		plan                sql.NullString
		trialEndAt, premEnd sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &plan, &trialEndAt, &premEnd,
		&p.Cancellation, &p.Trial, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if plan.Valid {
		pl := models.Plan(plan.String)
		p.SubscriptionPlan = &pl
	}
	if trialEndAt.Valid {
		t := trialEndAt.Time.UTC()
		p.PremiumTrialEndAt = &t
	}
	if premEnd.Valid {
		t := premEnd.Time.UTC()
		p.PremiumEndAt = &t
	}
	return &p, nil
}

// UpsertProfileState записывает выведенное состояние в профиль.
// trial обновляется как защёлка (trial OR новое значение). Если состояние
// совпадает с сохранённым, строка не меняется, включая updated_at.
func (s *Storage) UpsertProfileState(ctx context.Context, userID string, st models.ProfileState) error {
	const op = "storage.UpsertProfileState"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO profiles (id, subscription_plan, premium_end_at, premium_trial_end_at,
			      cancellation, trial, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, now())
			  ON CONFLICT (id) DO UPDATE SET
			      subscription_plan = EXCLUDED.subscription_plan,
			      premium_end_at = EXCLUDED.premium_end_at,
			      premium_trial_end_at = EXCLUDED.premium_trial_end_at,
			      cancellation = EXCLUDED.cancellation,
			      trial = profiles.trial OR EXCLUDED.trial,
			      updated_at = now()
			  WHERE (profiles.subscription_plan, profiles.premium_end_at, profiles.premium_trial_end_at,
			         profiles.cancellation, profiles.trial)
			      IS DISTINCT FROM
			        (EXCLUDED.subscription_plan, EXCLUDED.premium_end_at, EXCLUDED.premium_trial_end_at,
			         EXCLUDED.cancellation, profiles.trial OR EXCLUDED.trial)`
	_, err := s.DB.ExecContext(ctx, query, userID, string(st.Plan),
		nullTime(st.PremiumEndAt), nullTime(st.PremiumTrialEndAt), st.Cancellation, st.Trial)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetTrialEnd обновляет только premium_trial_end_at.
func (s *Storage) SetTrialEnd(ctx context.Context, userID string, trialEnd *time.Time) error {
	const op = "storage.SetTrialEnd"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO profiles (id, premium_trial_end_at, updated_at)
			  VALUES ($1, $2, now())
			  ON CONFLICT (id) DO UPDATE SET
			      premium_trial_end_at = EXCLUDED.premium_trial_end_at,
			      updated_at = now()
			  WHERE profiles.premium_trial_end_at IS DISTINCT FROM EXCLUDED.premium_trial_end_at`
	if _, err := s.DB.ExecContext(ctx, query, userID, nullTime(trialEnd)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetCancellation обновляет только флаг отмены в конце периода.
func (s *Storage) SetCancellation(ctx context.Context, userID string, cancellation bool) error {
	const op = "storage.SetCancellation"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO profiles (id, cancellation, updated_at)
			  VALUES ($1, $2, now())
			  ON CONFLICT (id) DO UPDATE SET
			      cancellation = EXCLUDED.cancellation,
			      updated_at = now()
			  WHERE profiles.cancellation IS DISTINCT FROM EXCLUDED.cancellation`
	if _, err := s.DB.ExecContext(ctx, query, userID, cancellation); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
