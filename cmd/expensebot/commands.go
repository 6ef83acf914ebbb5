package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/velkoldin-dev/tratyallday/internal/backend"
	"github.com/velkoldin-dev/tratyallday/internal/cli"
	"github.com/velkoldin-dev/tratyallday/internal/digest"
	"github.com/velkoldin-dev/tratyallday/internal/telegram"
)

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Send yesterday's digest to every user once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.RequireBot(); err != nil {
				return err
			}

			ctx, cancel := cli.SignalContext(cmd.Context(), a.logger)
			defer cancel()

			bot, err := telegram.New(a.cfg.Bot.Token, telegram.Options{}, a.logger)
			if err != nil {
				return err
			}
			report, err := digest.NewBroadcaster(a.records, a.stats, bot,
				digest.Config{SendDelay: a.cfg.Digest.SendDelay}, a.logger).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Digest sent: %d of %d (failed: %d)\n", report.Sent, report.Total, report.Failed)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema of the configured backend",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg.Log)
			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			if err := backend.Migrate(bcfg); err != nil {
				return fmt.Errorf("migrate %s: %w", bcfg.Type, err)
			}
			logger.Info("Migrations applied", "backend", bcfg.Type.String())
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			users, err := a.backend.Repository.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			if len(users) == 0 {
				fmt.Println("No users yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tUSERNAME\tNAME")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.FirstName)
			}
			return nil
		},
	}
}
