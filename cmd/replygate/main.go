package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/replygate/replygate/internal/interfaces/cli/migrate"
	"github.com/replygate/replygate/internal/interfaces/cli/server"
	"github.com/replygate/replygate/internal/interfaces/cli/token"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "replygate",
		Short: "Replygate - multi-tenant messaging autoresponder",
		Long:  `Replygate connects tenant messaging sessions to a bridge service and answers inbound messages with keyword-matched replies, subject to subscription, quota, and operating-hours gates.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		token.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
