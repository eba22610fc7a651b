package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpawlik/gridcal/internal/agenda"
	"github.com/mpawlik/gridcal/internal/calendar"
	"github.com/mpawlik/gridcal/internal/config"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/google"
	"github.com/mpawlik/gridcal/internal/logging"
	"github.com/mpawlik/gridcal/internal/session"
)

func newAgendaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agenda",
		Short: "Print the upcoming events",
		Long: `Initialize the session from the stored token, fetch the upcoming
events once, and print them. Requires a prior 'gridcal login'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, os.Stderr)

			loc, err := time.LoadLocation(cfg.TimeZone)
			if err != nil {
				return fmt.Errorf("invalid time zone %q: %w", cfg.TimeZone, err)
			}

			tokens, err := google.OpenTokenStore(cfg.TokenDB)
			if err != nil {
				return fmt.Errorf("failed to open token store: %w", err)
			}
			defer func() {
				_ = tokens.Close()
			}()

			manager := session.NewManager(cfg, google.NewAuthenticator(cfg), tokens, nil, logger)
			defer manager.Stop()

			store := events.NewStore()
			controller := agenda.NewController(store, manager, func(ctx context.Context) (agenda.CalendarAPI, error) {
				httpClient, err := manager.HTTPClient(ctx)
				if err != nil {
					return nil, err
				}
				return calendar.New(ctx, httpClient, cfg)
			}, nil, logger)

			ctx := context.Background()
			if err := manager.Initialize(ctx); err != nil {
				return err
			}
			if manager.State() != session.StateSignedIn {
				return fmt.Errorf("not signed in; run 'gridcal login' first")
			}

			// An explicit refresh instead of the subscription-driven
			// fetch, so a failure surfaces as a command error.
			if err := controller.Refresh(ctx); err != nil {
				return err
			}

			evs, revision := store.Snapshot()
			if len(evs) == 0 {
				fmt.Println("No upcoming events.")
				return nil
			}

			for _, ev := range evs {
				start := ev.Start.In(loc)
				end := ev.End.In(loc)
				endFormat := "15:04"
				if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
					endFormat = "2006-01-02 15:04"
				}
				fmt.Printf("%s - %s  %s\n", start.Format("2006-01-02 15:04"), end.Format(endFormat), ev.Title)
			}
			fmt.Printf("\n%d upcoming events (revision %d)\n", len(evs), revision)
			return nil
		},
	}
}
