package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/glift-app/glift-billing/internal/models"
)

const (
	effectivePrefix = "subscription:effective:"
	processedPrefix = "billing:event:processed:"
)

// EffectiveKey возвращает ключ кеша вычисленной подписки клиента.
func EffectiveKey(customerID string) string {
	return effectivePrefix + customerID
}

// GetEffective читает вычисленную подписку клиента из кеша.
func (c *Cache) GetEffective(ctx context.Context, customerID string) (*models.EffectiveSubscription, bool, error) {
	var eff models.EffectiveSubscription
	found, err := c.Get(ctx, EffectiveKey(customerID), &eff)
	if err != nil || !found {
		return nil, false, err
	}
	return &eff, true, nil
}

// SetEffective кладёт вычисленную подписку клиента в кеш.
func (c *Cache) SetEffective(ctx context.Context, customerID string, eff models.EffectiveSubscription, ttl time.Duration) error {
	return c.Set(ctx, EffectiveKey(customerID), eff, ttl)
}

// InvalidateEffective сбрасывает кеш подписки клиента.
func (c *Cache) InvalidateEffective(ctx context.Context, customerID string) error {
	return c.Invalidate(ctx, EffectiveKey(customerID))
}

// IsEventProcessed сообщает, было ли событие уже успешно применено.
func (c *Cache) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	const op = "cache.IsEventProcessed"
	n, err := c.Db.Exists(ctx, processedPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// MarkEventProcessed отмечает событие как применённое на время ttl.
func (c *Cache) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	const op = "cache.MarkEventProcessed"
	if err := c.Db.Set(ctx, processedPrefix+eventID, time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
