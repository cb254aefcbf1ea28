package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token",
	Long: `Issue a short-lived session token with the API key.

The token authenticates session calls and the voice chat socket; hand it to
a browser host instead of the API key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireAPIKey()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		token, err := keyedClient(cfg).CreateToken(ctx)
		if err != nil {
			return fmt.Errorf("create token failed: %w", err)
		}
		return outputResult(map[string]string{"token": token})
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List active sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireAPIKey()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		sessions, err := keyedClient(cfg).List(ctx)
		if err != nil {
			return fmt.Errorf("list sessions failed: %w", err)
		}
		printVerbose("%d active sessions", len(sessions))
		return outputResult(sessions)
	},
}

var avatarsCmd = &cobra.Command{
	Use:   "avatars",
	Short: "List streaming avatars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireAPIKey()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		avatars, err := keyedClient(cfg).ListAvatars(ctx)
		if err != nil {
			return fmt.Errorf("list avatars failed: %w", err)
		}
		return outputResult(avatars)
	},
}
