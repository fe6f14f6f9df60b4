package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hrmspro/backend/internal/config"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/services"
	"hrmspro/backend/internal/utils"
)

// newTokenCmd mints an HS256 token for a shadow user, creating the user
// if needed. It is meant for local development and smoke tests.
func newTokenCmd() *cobra.Command {
	var (
		email   string
		role    string
		ttl     time.Duration
		decoded bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Auth.Secret == "" {
				return errors.New("token minting needs auth.secret")
			}
			parsedRole, ok := models.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}

			store, pool, err := openStore(cfg, true)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			auth, err := services.NewAuthService(store, nil, services.AuthConfig{
				Secret:   cfg.Auth.Secret,
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
				TokenTTL: cfg.Auth.TokenTTL,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			user, err := auth.EnsureUser(ctx, email, parsedRole)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(user, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)

			if decoded {
				claims, err := utils.ParseJWT(token, cfg.Auth.Secret)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stderr)
				enc.SetIndent("", "  ")
				return enc.Encode(claims)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "user email (required)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleOperator), "MANAGER, OPERATOR or PROJECT_MANAGER")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to auth.token_ttl")
	cmd.Flags().BoolVar(&decoded, "decode", false, "print the verified claims to stderr")
	cmd.MarkFlagRequired("email")
	return cmd
}
