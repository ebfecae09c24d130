package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
)

func newIntentCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intent",
		Short: "Payment intent operations",
	}
	cmd.AddCommand(
		newIntentCreateCmd(opts),
		newIntentGetCmd(opts),
		newIntentCancelCmd(opts),
		newIntentPollCmd(opts),
	)
	return cmd
}

func newIntentCreateCmd(opts *options) *cobra.Command {
	var (
		req    dto.CreateIntentRequest
		kind   string
		amount string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a purchase intent",
		Example: `  creditledger-cli intent create --owner-kind client --owner-id c1 --package starter
  creditledger-cli intent create --owner-kind client --owner-id c1 --amount 100 --category exam --partner lab-7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.OwnerKind = domain.OwnerKind(kind)
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
				req.Amount = d
			}
			req.TTLSeconds = int64(ttl / time.Second)

			var intent dto.IntentResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/intents", nil, req, &intent); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), intent)
		},
	}

	f := cmd.Flags()
	f.StringVar(&kind, "owner-kind", "client", "Owner kind (client or company)")
	f.StringVar(&req.OwnerID, "owner-id", "", "Owner ID")
	f.StringVar(&req.PackageID, "package", "", "Credit package ID")
	f.StringVar(&amount, "amount", "", "Amount for a service purchase")
	f.StringVar(&req.ServiceCategory, "category", "", "Service category for split purchases")
	f.StringVar(&req.SeverityTier, "tier", "", "Severity tier")
	f.StringVar(&req.PartnerID, "partner", "", "Partner receiving the partner share")
	f.StringVar(&req.ExternalReference, "reference", "", "Gateway reference (generated when empty)")
	f.StringVar(&req.Description, "description", "", "Free text description")
	f.DurationVar(&ttl, "ttl", 0, "Intent lifetime (server default when zero)")
	_ = cmd.MarkFlagRequired("owner-id")
	return cmd
}

func newIntentGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <intent-id>",
		Short: "Show a payment intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := getIntent(cmd.Context(), newAPIClient(opts), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), intent)
		},
	}
}

func newIntentCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <intent-id>",
		Short: "Cancel a pending payment intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var intent dto.IntentResponse
			path := "/api/v1/intents/" + url.PathEscape(args[0]) + "/cancel"
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, path, nil, nil, &intent); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), intent)
		},
	}
}

type pollConfig struct {
	proofURL string
	interval time.Duration
	maxWait  time.Duration
}

func newIntentPollCmd(opts *options) *cobra.Command {
	var pc pollConfig

	cmd := &cobra.Command{
		Use:   "poll <intent-id>",
		Short: "Poll until an intent is confirmed, cancelled or expired",
		Long: `Poll a payment intent until it reaches a terminal status.

With --proof-url the gateway status endpoint is fetched on every round and
its payload is submitted to the reconcile endpoint; the API answer decides
the outcome. Without it the intent is re-read until the webhook lands.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := pollIntent(cmd.Context(), newAPIClient(opts), args[0], pc)
			if intent != nil {
				if perr := printJSON(cmd.OutOrStdout(), intent); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&pc.proofURL, "proof-url", "", "Gateway status URL to fetch and reconcile")
	cmd.Flags().DurationVar(&pc.interval, "interval", time.Second, "Initial delay between rounds")
	cmd.Flags().DurationVar(&pc.maxWait, "max-wait", 5*time.Minute, "Give up after this long")
	return cmd
}

var errStillPending = errors.New("intent still pending")

// pollIntent retries with exponential backoff until the intent is terminal.
// The last intent seen is returned even when polling gives up.
func pollIntent(ctx context.Context, c *apiClient, id string, pc pollConfig) (*dto.IntentResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pc.interval
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = pc.maxWait

	var last *dto.IntentResponse
	op := func() error {
		intent, err := pollOnce(ctx, c, id, pc.proofURL)
		if err != nil {
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		last = intent
		if domain.IntentStatus(intent.Status).IsTerminal() {
			return nil
		}
		return errStillPending
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return last, fmt.Errorf("polling intent %s: %w", id, err)
	}
	return last, nil
}

func pollOnce(ctx context.Context, c *apiClient, id, proofURL string) (*dto.IntentResponse, error) {
	if proofURL == "" {
		return getIntent(ctx, c, id)
	}

	proof, err := fetchProof(ctx, c.http, proofURL)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Intent *dto.IntentResponse `json:"intent"`
	}
	path := "/api/v1/intents/" + url.PathEscape(id) + "/reconcile"
	err = c.do(ctx, http.MethodPost, path, nil, proof, &resp)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		// Closed by someone else; the stored intent is the answer.
		return getIntent(ctx, c, id)
	}
	if err != nil {
		return nil, err
	}
	if resp.Intent == nil {
		return getIntent(ctx, c, id)
	}
	return resp.Intent, nil
}

func fetchProof(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching gateway status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway status returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, domain.MaxProofSize+1))
}

func getIntent(ctx context.Context, c *apiClient, id string) (*dto.IntentResponse, error) {
	var intent dto.IntentResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/intents/"+url.PathEscape(id), nil, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
