package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTokenCmd(wire Wire) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user (local testing)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("invalid --user %q: %w", userID, err)
			}
			return withApp(cmd, wire, func(app *App) error {
				user, err := app.Users.GetUser(cmd.Context(), userID)
				if err != nil {
					return fmt.Errorf("load user: %w", err)
				}
				token, err := app.Tokens.GenerateToken(user.ID, user.Email)
				if err != nil {
					return fmt.Errorf("issue token: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID (uuid)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
