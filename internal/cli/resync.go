package cli

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/glift-app/glift-billing/internal/lib/sl"
)

func newResyncCmd(log *slog.Logger, wire Wire) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Re-synchronize one user's profile with the billing provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("invalid --user %q: %w", userID, err)
			}
			return withApp(cmd, wire, func(app *App) error {
				return runResync(cmd, log, app, userID)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID (uuid)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runResync(cmd *cobra.Command, log *slog.Logger, app *App, userID string) error {
	const op = "cli.resync"
	log = log.With(slog.String("op", op), slog.String("user_id", userID))

	user, err := app.Users.GetUser(cmd.Context(), userID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		return fmt.Errorf("load user: %w", err)
	}

	eff, err := app.Synchronizer.Sync(cmd.Context(), *user)
	if err != nil {
		log.Error("failed to sync user", sl.Err(err))
		return fmt.Errorf("sync user: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s plan=%s status=%s will_cancel=%t\n",
		user.ID, eff.Plan, eff.Status, eff.WillCancel)
	return err
}
