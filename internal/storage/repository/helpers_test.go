package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/glift-app/glift-billing/internal/migrations"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		_ = pgContainer.Terminate(ctx)
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = storage.Close()
	})

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

// createUser добавляет пользователя и возвращает его ID.
func createUser(t *testing.T, s *Storage, email, attributes string) string {
	t.Helper()
	id := uuid.New().String()
	if attributes == "" {
		attributes = "{}"
	}
	_, err := s.DB.Exec(`INSERT INTO users (id, email, attributes) VALUES ($1, $2, $3::jsonb)`,
		id, email, attributes)
	require.NoError(t, err)
	return id
}

func profileUpdatedAt(t *testing.T, s *Storage, userID string) time.Time {
	t.Helper()
	var updatedAt time.Time
	err := s.DB.QueryRow(`SELECT updated_at FROM profiles WHERE id = $1`, userID).Scan(&updatedAt)
	require.NoError(t, err)
	return updatedAt
}
