package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/velkoldin-dev/tratyallday/internal/cli"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "expensebot",
		Short: "Telegram bot for logging daily expenses",
		Long: `expensebot records expenses sent through a Telegram chat, answers
stats and history requests and sends a daily digest to every user.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			if cfgFile != "" {
				return os.Setenv("CONFIG_PATH", cfgFile)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overridden by environment variables)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(digestCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(usersCmd())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
