package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/glift-app/glift-billing/internal/lib/sl"
	"github.com/glift-app/glift-billing/internal/models"
)

// BackfillReport итог прохода по всем пользователям.
type BackfillReport struct {
	Total   int
	Synced  int
	Failed  int
	Premium int
}

func newBackfillCmd(log *slog.Logger, wire Wire) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Re-synchronize every user's profile with the billing provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batch <= 0 {
				return fmt.Errorf("--batch must be positive, got %d", batch)
			}
			return withApp(cmd, wire, func(app *App) error {
				report, err := runBackfill(cmd, log, app, batch)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "total=%d synced=%d premium=%d failed=%d\n",
					report.Total, report.Synced, report.Premium, report.Failed)
				if err != nil {
					return err
				}
				if report.Failed > 0 {
					return fmt.Errorf("backfill finished with %d failed users", report.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 100, "Users per page")
	return cmd
}

// runBackfill проходит пользователей постранично; ошибка одного
// пользователя учитывается в отчёте и не прерывает проход.
func runBackfill(cmd *cobra.Command, log *slog.Logger, app *App, batch int) (BackfillReport, error) {
	const op = "cli.backfill"
	log = log.With(slog.String("op", op))

	var (
		report  BackfillReport
		afterID string
	)
	for {
		users, err := app.Users.ListUsers(cmd.Context(), afterID, batch)
		if err != nil {
			log.Error("failed to list users", slog.String("after_id", afterID), sl.Err(err))
			return report, fmt.Errorf("list users: %w", err)
		}
		if len(users) == 0 {
			break
		}

		for _, user := range users {
			if err := cmd.Context().Err(); err != nil {
				return report, err
			}
			report.Total++
			eff, err := app.Synchronizer.Sync(cmd.Context(), user)
			if err != nil {
				report.Failed++
				log.Warn("failed to sync user", slog.String("user_id", user.ID), sl.Err(err))
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", user.ID, err)
				continue
			}
			report.Synced++
			if eff.Plan == models.PlanPremium {
				report.Premium++
			}
		}

		afterID = users[len(users)-1].ID
		log.Info("backfill page done", slog.Int("total", report.Total), slog.Int("failed", report.Failed))
		if len(users) < batch {
			break
		}
	}
	return report, nil
}
