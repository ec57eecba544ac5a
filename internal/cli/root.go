// Package cli содержит команды glift-billingctl для обслуживания профилей.
// Все команды пересчитывают тариф только через синхронизатор подписок.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/glift-app/glift-billing/internal/models"
)

// UserStore доступ к пользователям.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context, afterID string, limit int) ([]models.User, error)
}

// Synchronizer пересчитывает подписку пользователя и записывает её в профиль.
type Synchronizer interface {
	Sync(ctx context.Context, user models.User) (models.EffectiveSubscription, error)
}

// TokenIssuer выпускает сессионные токены.
type TokenIssuer interface {
	GenerateToken(userID, email string) (string, error)
}

// App зависимости команд.
type App struct {
	Users        UserStore
	Synchronizer Synchronizer
	Tokens       TokenIssuer
	Close        func() error
}

// Wire создаёт зависимости при первом обращении команды.
type Wire func(ctx context.Context) (*App, error)

// Execute выполняет корневую команду.
func Execute(ctx context.Context, log *slog.Logger, wire Wire) error {
	return NewRootCmd(log, wire).ExecuteContext(ctx)
}

// NewRootCmd собирает дерево команд.
func NewRootCmd(log *slog.Logger, wire Wire) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "glift-billingctl",
		Short:         "Maintenance tooling for Glift billing profiles",
		Long:          "glift-billingctl re-synchronizes user profiles with the external billing provider.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newResyncCmd(log, wire),
		newBackfillCmd(log, wire),
		newTokenCmd(wire),
	)
	return rootCmd
}

// withApp создаёт зависимости, выполняет fn и освобождает их.
func withApp(cmd *cobra.Command, wire Wire, fn func(app *App) error) error {
	app, err := wire(cmd.Context())
	if err != nil {
		return err
	}
	if app.Close != nil {
		defer func() { _ = app.Close() }()
	}
	return fn(app)
}
