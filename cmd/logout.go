package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpawlik/gridcal/internal/config"
	"github.com/mpawlik/gridcal/internal/google"
	"github.com/mpawlik/gridcal/internal/logging"
	"github.com/mpawlik/gridcal/internal/session"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Long: `Revoke the stored token at the provider where possible and remove it
from the local token store. The next sign-in starts from scratch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, os.Stderr)

			tokens, err := google.OpenTokenStore(cfg.TokenDB)
			if err != nil {
				return fmt.Errorf("failed to open token store: %w", err)
			}
			defer func() {
				_ = tokens.Close()
			}()

			manager := session.NewManager(cfg, google.NewAuthenticator(cfg), tokens, nil, logger)
			defer manager.Stop()

			ctx := context.Background()
			if err := manager.Initialize(ctx); err != nil {
				return err
			}
			if manager.State() != session.StateSignedIn {
				fmt.Println("Not signed in.")
				return nil
			}

			if err := manager.SignOut(ctx); err != nil {
				return err
			}

			fmt.Println("Signed out. The stored token has been removed.")
			return nil
		},
	}
}
