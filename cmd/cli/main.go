package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "creditledger-cli",
		Short:         "Credit ledger CLI tool",
		Long:          `A command line interface for interacting with the credit ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("CREDITLEDGER_URL", "http://localhost:8080"), "Base URL of the credit ledger API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("CREDITLEDGER_TOKEN"), "Operator bearer token")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		newBalanceCmd(opts),
		newTransactionsCmd(opts),
		newIntentCmd(opts),
		newSplitCmd(opts),
		newLedgerCmd(opts),
		newTokenCmd(opts),
		newHashPasswordCmd(),
		newMigrateCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
