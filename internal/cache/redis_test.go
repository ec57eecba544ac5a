package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glift-app/glift-billing/internal/config"
	"github.com/glift-app/glift-billing/internal/models"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	err := cache.Set(ctx, "user:1", expected, time.Minute)
	require.NoError(t, err)

	var actual testStruct
	found, err := cache.Get(ctx, "user:1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "key"))

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	err := cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}

func TestEffectiveSubscriptionRoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	periodEnd := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	eff := models.EffectiveSubscription{
		Status:         models.StatusTrialing,
		Plan:           models.PlanPremium,
		PeriodEnd:      &periodEnd,
		SubscriptionID: "sub_1",
		HasHistory:     true,
	}
	require.NoError(t, cache.SetEffective(ctx, "cus_1", eff, time.Minute))
	assert.True(t, mr.Exists("subscription:effective:cus_1"))

	got, found, err := cache.GetEffective(ctx, "cus_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, eff.Plan, got.Plan)
	assert.Equal(t, eff.Status, got.Status)
	assert.True(t, periodEnd.Equal(*got.PeriodEnd))

	mr.FastForward(2 * time.Minute)
	_, found, err = cache.GetEffective(ctx, "cus_1")
	require.NoError(t, err)
	assert.False(t, found, "entry must expire after ttl")
}

func TestInvalidateEffective(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetEffective(ctx, "cus_1", models.EffectiveSubscription{Plan: models.PlanStarter}, time.Minute))
	require.NoError(t, cache.InvalidateEffective(ctx, "cus_1"))

	_, found, err := cache.GetEffective(ctx, "cus_1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProcessedEvents(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	seen, err := cache.IsEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.MarkEventProcessed(ctx, "evt_1", time.Hour))

	seen, err = cache.IsEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = cache.IsEventProcessed(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)

	mr.FastForward(2 * time.Hour)
	seen, err = cache.IsEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestProcessedEvents_RedisDown(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.Close()

	_, err := cache.IsEventProcessed(context.Background(), "evt_1")
	assert.Error(t, err)
}
