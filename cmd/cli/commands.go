package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/usecase"
)

func newBalanceCmd(opts *options) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "balance [account-id]",
		Short: "Show an account balance",
		Example: `  creditledger-cli balance client:c1
  creditledger-cli balance --owner company/acme`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			switch {
			case owner != "":
				kind, id, ok := cutOwner(owner)
				if !ok {
					return fmt.Errorf("--owner must be kind/id, got %q", owner)
				}
				path = "/api/v1/owners/" + url.PathEscape(kind) + "/" + url.PathEscape(id) + "/balance"
			case len(args) == 1:
				path = "/api/v1/accounts/" + url.PathEscape(args[0]) + "/balance"
			default:
				return errors.New("give an account ID or --owner")
			}

			var resp dto.BalanceResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil, nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", resp.AccountID, resp.Balance.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner as kind/id instead of an account ID")
	return cmd
}

func newTransactionsCmd(opts *options) *cobra.Command {
	var (
		kinds  []string
		limit  int
		cursor string
		intent string
	)

	cmd := &cobra.Command{
		Use:   "transactions <account-id>",
		Short: "List an account's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for _, k := range kinds {
				q.Add("kind", k)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			if intent != "" {
				q.Set("payment_intent_id", intent)
			}

			var page dto.TransactionPageResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0])+"/transactions", q, nil, &page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, tx := range page.Transactions {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\n",
					tx.Sequence, tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), tx.Kind,
					tx.Amount.StringFixed(2), tx.BalanceAfter.StringFixed(2))
			}
			if page.NextCursor != "" {
				fmt.Fprintf(out, "next cursor: %s\n", page.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Filter by transaction kind (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	cmd.Flags().StringVar(&intent, "intent", "", "Only transactions of this payment intent")
	return cmd
}

func newSplitCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split configuration operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List split configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfgs []dto.SplitConfigResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/split-configurations", nil, nil, &cfgs); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range cfgs {
				key := c.ServiceCategory
				if c.SeverityTier != "" {
					key += "/" + c.SeverityTier
				}
				fmt.Fprintf(out, "%s\t%s", c.ID, key)
				for _, s := range c.Shares {
					fmt.Fprintf(out, "\t%s=%s%%", s.RecipientKind, s.Percentage.String())
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate every stored split configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SplitValidationResponse
			err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/split-configurations/validate", nil, nil, &resp)

			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				fmt.Fprintln(cmd.OutOrStdout(), "Split configurations INVALID")
				return err
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Split configurations valid")
			return nil
		},
	})

	return cmd
}

func newLedgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify [account-id]",
		Short: "Replay balance chains and compare with stored balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				var report dto.ConsistencyResponse
				if err := client.do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency/"+url.PathEscape(args[0]), nil, nil, &report); err != nil {
					return err
				}
				if !report.Consistent {
					fmt.Fprintf(out, "Consistency check FAILED for %s: %s\n", report.AccountID, report.Problem)
					return errors.New("ledger inconsistent")
				}
				fmt.Fprintf(out, "Consistency check PASSED for %s (%d transactions)\n", report.AccountID, report.Transactions)
				return nil
			}

			var summary dto.LedgerConsistencyResponse
			if err := client.do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency", nil, nil, &summary); err != nil {
				return err
			}
			if !summary.Consistent {
				fmt.Fprintf(out, "Consistency check FAILED (%d of %d accounts)\n", len(summary.Inconsistent), summary.Accounts)
				for _, r := range summary.Inconsistent {
					fmt.Fprintf(out, "  %s: %s\n", r.AccountID, r.Problem)
				}
				return errors.New("ledger inconsistent")
			}
			fmt.Fprintf(out, "Consistency check PASSED (%d accounts)\n", summary.Accounts)
			return nil
		},
	})

	return cmd
}

func newTokenCmd(opts *options) *cobra.Command {
	var operator, password string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.TokenResponse
			req := map[string]string{"operator_id": operator, "password": password}
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/auth/token", nil, req, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "Operator ID")
	cmd.Flags().StringVar(&password, "password", "", "Operator password")
	_ = cmd.MarkFlagRequired("operator")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for the OPERATORS setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := usecase.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func cutOwner(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], s[i+1:], i > 0 && i < len(s)-1
		}
	}
	return "", "", false
}
