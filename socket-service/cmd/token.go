package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/jwt"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/config"
)

// buildTokenCmd mints a development access token with the configured signing key.
func buildTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			tokens, err := jwt.NewManager(cfg.Auth)
			if err != nil {
				return err
			}

			token, err := tokens.GenerateToken(userID, email, role, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to embed in the token")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&role, "role", "user", "Role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
