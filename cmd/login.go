package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpawlik/gridcal/internal/config"
	"github.com/mpawlik/gridcal/internal/google"
	"github.com/mpawlik/gridcal/internal/logging"
	"github.com/mpawlik/gridcal/internal/prompt"
	"github.com/mpawlik/gridcal/internal/session"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google Calendar",
		Long: `Run the interactive OAuth sign-in flow on the terminal and persist the
resulting token. Later commands and the serve daemon reuse the stored
token until it is removed with logout.`,
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

			prompter := prompt.New(os.Stdin, os.Stdout)
			manager := session.NewManager(cfg, google.NewAuthenticator(cfg), tokens, prompter, logger)
			defer manager.Stop()

			ctx := context.Background()
			if err := manager.Initialize(ctx); err != nil {
				return err
			}
			if manager.State() == session.StateSignedIn {
				fmt.Println("Already signed in.")
				return nil
			}

			if err := manager.SignIn(ctx); err != nil {
				if errors.Is(err, session.ErrDeclined) {
					fmt.Println("Sign-in declined.")
					return nil
				}
				return err
			}

			fmt.Println("Signed in. The token is stored for future runs.")
			return nil
		},
	}
}
