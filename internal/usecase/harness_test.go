package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/adapter/repository/memory"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
	"github.com/iho/creditledger/internal/usecase"
)

type seqIDGen struct {
	n atomic.Int64
}

func (g *seqIDGen) Generate() string {
	return fmt.Sprintf("id-%06d", g.n.Add(1))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store     *memory.Store
	clock     *fakeClock
	metrics   *metrics.Metrics
	ledger    *usecase.LedgerUseCase
	splits    *usecase.SplitUseCase
	intents   *usecase.IntentUseCase
	reconcile *usecase.ReconciliationUseCase
	query     *usecase.QueryUseCase
	outbox    *memory.OutboxRepository
	audit     *memory.AuditRepository
}

type harnessConfig struct {
	settings     usecase.IntentSettings
	transactions func(usecase.TransactionRepository) usecase.TransactionRepository
}

type harnessOption func(*harnessConfig)

func withGrace(d time.Duration) harnessOption {
	return func(c *harnessConfig) { c.settings.Grace = d }
}

// withTransactions wraps the repository the ledger appends through.
func withTransactions(wrap func(usecase.TransactionRepository) usecase.TransactionRepository) harnessOption {
	return func(c *harnessConfig) { c.transactions = wrap }
}

// hookedTransactions runs hook before every Create; a non-nil error fails
// the write.
type hookedTransactions struct {
	usecase.TransactionRepository

	mu    sync.Mutex
	calls int
	hook  func(call int) error
}

func (r *hookedTransactions) Create(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	r.calls++
	call, hook := r.calls, r.hook
	r.mu.Unlock()

	if hook != nil {
		if err := hook(call); err != nil {
			return err
		}
	}
	return r.TransactionRepository.Create(ctx, tx, t)
}

func (r *hookedTransactions) setHook(hook func(call int) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = 0
	r.hook = hook
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	accounts := memory.NewAccountRepository(store)
	transactions := memory.NewTransactionRepository(store)
	intentRepo := memory.NewIntentRepository(store)
	splitRepo := memory.NewSplitConfigRepository(store)
	outbox := memory.NewOutboxRepository(store)
	audit := memory.NewAuditRepository(store)

	idGen := &seqIDGen{}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	logger := zerolog.Nop()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	cfg := harnessConfig{
		settings: usecase.IntentSettings{
			PlatformOwnerID:  "main",
			DefaultPartnerID: "clinic-1",
			TTL:              time.Hour,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var ledgerTransactions usecase.TransactionRepository = transactions
	if cfg.transactions != nil {
		ledgerTransactions = cfg.transactions(transactions)
	}

	ledger := usecase.NewLedgerUseCase(txm, accounts, ledgerTransactions, outbox, audit, idGen, nil, m, logger)
	ledger.SetClock(clock.Now)

	splits := usecase.NewSplitUseCase(txm, splitRepo, outbox, audit, idGen, m, logger)
	splits.SetClock(clock.Now)

	packages, err := domain.ParseCreditPackages([]string{"starter:Starter:10.00:12", "pro:Pro:45.00:60"})
	require.NoError(t, err)

	cfg.settings.Packages = packages

	intents := usecase.NewIntentUseCase(txm, intentRepo, outbox, audit, splits, idGen, cfg.settings, m, logger)
	intents.SetClock(clock.Now)

	reconcile := usecase.NewReconciliationUseCase(txm, intentRepo, transactions, ledger, intents, splits, idGen, nil, m, logger)
	reconcile.SetClock(clock.Now)

	return &harness{
		store:     store,
		clock:     clock,
		metrics:   m,
		ledger:    ledger,
		splits:    splits,
		intents:   intents,
		reconcile: reconcile,
		query:     usecase.NewQueryUseCase(accounts, transactions),
		outbox:    outbox,
		audit:     audit,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (h *harness) credit(t *testing.T, accountID, amount string) {
	t.Helper()
	_, err := h.ledger.Append(context.Background(), usecase.AppendInput{
		AccountID: accountID,
		Kind:      domain.KindPurchase,
		Amount:    dec(amount),
	})
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	b, err := h.query.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return b
}

func (h *harness) configure(t *testing.T, category, tier string, shares ...string) *domain.SplitConfiguration {
	t.Helper()
	require.Zero(t, len(shares)%2)

	var ss []domain.SplitShare
	for i := 0; i < len(shares); i += 2 {
		ss = append(ss, domain.SplitShare{RecipientKind: domain.RecipientKind(shares[i]), Percentage: dec(shares[i+1])})
	}

	cfg, err := h.splits.Create(context.Background(), usecase.SplitConfigInput{
		ServiceCategory: category,
		SeverityTier:    tier,
		Shares:          ss,
	})
	require.NoError(t, err)
	return cfg
}
