package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
	"github.com/iho/creditledger/internal/usecase"
	"github.com/iho/creditledger/internal/usecase/mocks"
)

func (h *harness) splitIntent(t *testing.T, amount string) *domain.PaymentIntent {
	t.Helper()
	intent, err := h.intents.CreatePurchaseIntent(context.Background(), usecase.CreatePurchaseIntentInput{
		OwnerKind:         domain.OwnerKindClient,
		OwnerID:           "c1",
		ServiceCategory:   "exam",
		SeverityTier:      "urgent",
		PartnerID:         "lab-7",
		ExternalReference: "ref-" + amount,
		Amount:            dec(amount),
	})
	require.NoError(t, err)
	return intent
}

func paid(ref, amount string) *domain.PaymentProof {
	p := &domain.PaymentProof{ExternalReference: ref, Status: domain.ProofStatusPaid, GatewayTransactionID: "gw-1"}
	if amount != "" {
		a := dec(amount)
		p.Amount = &a
	}
	return p
}

func transactionIDs(txs []*domain.Transaction) []string {
	ids := make([]string, 0, len(txs))
	for _, t := range txs {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestReconcile_SplitsPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.configure(t, "exam", "urgent", "platform", "30", "partner", "20", "client", "50")

	intent := h.splitIntent(t, "100.00")

	result, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "100.00"))
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	require.Len(t, result.Transactions, 3)

	assert.True(t, h.balance(t, "platform:main").Equal(dec("30")))
	assert.True(t, h.balance(t, "partner:lab-7").Equal(dec("20")))
	assert.True(t, h.balance(t, "client:c1").Equal(dec("50")))

	for _, tx := range result.Transactions {
		assert.Equal(t, domain.KindPurchase, tx.Kind)
		require.NotNil(t, tx.PaymentIntentID)
		assert.Equal(t, intent.ID, *tx.PaymentIntentID)
	}

	got, err := h.intents.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusConfirmed, got.Status)
	assert.Equal(t, transactionIDs(result.Transactions), got.TransactionIDs)
	assert.Equal(t, "gw-1", got.Proof["gateway_transaction_id"])
	require.NotNil(t, got.ConfirmedAt)

	events, err := h.outbox.GetByAggregate(ctx, domain.AggregateTypeIntent, intent.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeIntentConfirmed, events[1].EventType)

	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Reconciliations.WithLabelValues("ok")))
}

func TestReconcile_SplitRemainderGoesToLastShare(t *testing.T) {
	h := newHarness(t)
	h.configure(t, "exam", "urgent", "platform", "33.33", "partner", "33.33", "client", "33.34")

	intent := h.splitIntent(t, "100.01")

	result, err := h.reconcile.Reconcile(context.Background(), intent.ID, nil)
	require.NoError(t, err)

	total := decimal.Zero
	for _, tx := range result.Transactions {
		total = total.Add(tx.Amount)
	}
	assert.True(t, total.Equal(dec("100.01")))
	assert.True(t, h.balance(t, "platform:main").Equal(dec("33.33")))
	assert.True(t, h.balance(t, "partner:lab-7").Equal(dec("33.33")))
	assert.True(t, h.balance(t, "client:c1").Equal(dec("33.35")))
}

func TestReconcile_ZeroSharesAreSkipped(t *testing.T) {
	h := newHarness(t)
	h.configure(t, "exam", "urgent", "platform", "30", "partner", "20", "client", "50")

	intent := h.splitIntent(t, "0.01")

	result, err := h.reconcile.Reconcile(context.Background(), intent.ID, nil)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "client:c1", result.Transactions[0].AccountID)
	assert.True(t, result.Transactions[0].Amount.Equal(dec("0.01")))

	_, err = h.query.GetAccount(context.Background(), "platform:main")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestReconcile_PackageGrantsCredits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.intents.CreatePurchaseIntent(ctx, usecase.CreatePurchaseIntentInput{
		OwnerKind:         domain.OwnerKindClient,
		OwnerID:           "c1",
		PackageID:         "starter",
		ExternalReference: "pkg-1",
	})
	require.NoError(t, err)

	result, err := h.reconcile.ReconcileByExternalReference(ctx, "pkg-1", paid("pkg-1", "10.00"))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.True(t, h.balance(t, "client:c1").Equal(dec("12")))
	assert.Equal(t, intent.ID, result.Intent.ID)

	_, err = h.reconcile.ReconcileByExternalReference(ctx, "pkg-unknown", nil)
	assert.ErrorIs(t, err, domain.ErrIntentNotFound)
}

func TestReconcile_ReplayReturnsOriginalTransactions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.configure(t, "exam", "urgent", "platform", "30", "partner", "20", "client", "50")

	intent := h.splitIntent(t, "100.00")

	first, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "100.00"))
	require.NoError(t, err)

	// A replay with a different proof still reports the first outcome.
	second, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "1.00"))
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.ElementsMatch(t, transactionIDs(first.Transactions), transactionIDs(second.Transactions))

	assert.True(t, h.balance(t, "client:c1").Equal(dec("50")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Reconciliations.WithLabelValues("already_processed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Reconciliations.WithLabelValues("ok")))
}

func TestReconcile_ConcurrentDeliveriesCreditOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.configure(t, "exam", "urgent", "platform", "30", "partner", "20", "client", "50")

	intent := h.splitIntent(t, "100.00")

	const workers = 12
	results := make([]*usecase.ReconciliationResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "100.00"))
		}(i)
	}
	wg.Wait()

	fresh := 0
	var ids []string
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyProcessed {
			fresh++
		}
		got := transactionIDs(results[i].Transactions)
		if ids == nil {
			ids = got
		}
		assert.ElementsMatch(t, ids, got)
	}

	assert.Equal(t, 1, fresh)
	assert.True(t, h.balance(t, "platform:main").Equal(dec("30")))
	assert.True(t, h.balance(t, "partner:lab-7").Equal(dec("20")))
	assert.True(t, h.balance(t, "client:c1").Equal(dec("50")))

	summary, err := h.ledger.VerifyAll(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Consistent)
}

func TestReconcile_ClosedIntentIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, closeFn := range []func(context.Context, string) (*domain.PaymentIntent, error){h.intents.Expire, h.intents.Cancel} {
		intent, err := h.intents.CreatePurchaseIntent(ctx, usecase.CreatePurchaseIntentInput{
			OwnerKind: domain.OwnerKindClient, OwnerID: "c1", Amount: dec("5"), TTL: time.Minute,
		})
		require.NoError(t, err)
		h.clock.Advance(2 * time.Minute)

		closed, err := closeFn(ctx, intent.ID)
		require.NoError(t, err)

		_, err = h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "5"))
		var terminal *domain.IntentTerminalError
		require.ErrorAs(t, err, &terminal)
		assert.Equal(t, closed.Status, terminal.Status)
	}

	assert.True(t, h.balance(t, "client:c1").IsZero())
	assert.Equal(t, float64(2), testutil.ToFloat64(h.metrics.Reconciliations.WithLabelValues("terminal")))
}

func TestReconcile_LatePaymentWithinGrace(t *testing.T) {
	h := newHarness(t, withGrace(5*time.Minute))
	ctx := context.Background()

	intent, err := h.intents.CreatePurchaseIntent(ctx, usecase.CreatePurchaseIntentInput{
		OwnerKind: domain.OwnerKindClient, OwnerID: "c1", Amount: dec("5"),
	})
	require.NoError(t, err)

	h.clock.Advance(time.Hour + 4*time.Minute)

	_, err = h.reconcile.Reconcile(ctx, intent.ID, nil)
	require.NoError(t, err)
	assert.True(t, h.balance(t, "client:c1").Equal(dec("5")))
}

func TestReconcile_LateConfirmationIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.intents.CreatePurchaseIntent(ctx, usecase.CreatePurchaseIntentInput{
		OwnerKind: domain.OwnerKindClient, OwnerID: "c1", Amount: dec("5"),
	})
	require.NoError(t, err)

	h.clock.Advance(time.Hour + time.Minute)

	result, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "5"))
	assert.Nil(t, result)
	var terminal *domain.IntentTerminalError
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, domain.IntentStatusExpired, terminal.Status)

	got, err := h.intents.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusExpired, got.Status)
	assert.Empty(t, got.TransactionIDs)

	txs, err := h.query.ListTransactions(ctx, usecase.ListTransactionsInput{AccountID: "client:c1"})
	require.NoError(t, err)
	assert.Empty(t, txs.Transactions)
	assert.True(t, h.balance(t, "client:c1").IsZero())
}

func TestReconcile_OverdueIntentIsExpired(t *testing.T) {
	h := newHarness(t, withGrace(5*time.Minute))
	ctx := context.Background()

	intent, err := h.intents.CreatePurchaseIntent(ctx, usecase.CreatePurchaseIntentInput{
		OwnerKind: domain.OwnerKindClient, OwnerID: "c1", Amount: dec("5"),
	})
	require.NoError(t, err)

	h.clock.Advance(time.Hour + 6*time.Minute)

	_, err = h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "5"))
	assert.ErrorIs(t, err, domain.ErrIntentAlreadyTerminal)

	got, err := h.intents.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusExpired, got.Status)
	assert.True(t, h.balance(t, "client:c1").IsZero())
}

func TestReconcile_RejectsBadProof(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	intent, err := h.intents.CreatePurchaseIntent(ctx, usecase.CreatePurchaseIntentInput{
		OwnerKind: domain.OwnerKindClient, OwnerID: "c1", Amount: dec("5"), ExternalReference: "ref-5",
	})
	require.NoError(t, err)

	failed := paid("ref-5", "5")
	failed.Status = domain.ProofStatusFailed

	tests := []struct {
		name    string
		proof   *domain.PaymentProof
		wantErr error
	}{
		{"amount mismatch", paid("ref-5", "4.99"), domain.ErrProofAmountMismatch},
		{"other reference", paid("ref-6", "5"), domain.ErrInvalidProof},
		{"failed payment", failed, domain.ErrInvalidProof},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.reconcile.Reconcile(ctx, intent.ID, tt.proof)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, domain.ErrReconciliationStorageFailure)
		})
	}

	got, err := h.intents.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusPending, got.Status)
	assert.True(t, h.balance(t, "client:c1").IsZero())

	_, err = h.reconcile.Reconcile(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrIntentNotFound)
}

func TestReconcile_ConfigurationChangedSinceCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cfg := h.configure(t, "exam", "urgent", "platform", "50", "partner", "50")

	intent := h.splitIntent(t, "10.00")

	_, err := h.splits.Update(ctx, cfg.ID, usecase.SplitConfigInput{
		ServiceCategory: "exam",
		SeverityTier:    "urgent",
		Shares: []domain.SplitShare{
			{RecipientKind: domain.RecipientPlatform, Percentage: dec("50")},
			{RecipientKind: domain.RecipientReseller, Percentage: dec("50")},
		},
	})
	require.NoError(t, err)

	_, err = h.reconcile.Reconcile(ctx, intent.ID, nil)
	assert.ErrorIs(t, err, domain.ErrUnresolvedRecipient)

	got, err := h.intents.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusPending, got.Status)
}

func TestReconcile_StorageFailureIsWrappedAndRetried(t *testing.T) {
	ctrl := gomock.NewController(t)

	txm := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTx(ctrl)
	intentRepo := mocks.NewMockIntentRepository(ctrl)
	retrier := mocks.NewMockRetrier(ctrl)

	storageErr := errors.New("connection reset by peer")

	txm.EXPECT().Begin(gomock.Any()).Return(tx, nil).Times(2)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).Times(2)
	intentRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, "intent-1").Return(nil, storageErr).Times(2)

	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, operation func() error) error {
			if err := operation(); err == nil {
				return nil
			}
			return operation()
		},
	)

	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	uc := usecase.NewReconciliationUseCase(txm, intentRepo, nil, nil, nil, nil, &seqIDGen{}, retrier, m, zerolog.Nop())

	_, err := uc.Reconcile(context.Background(), "intent-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReconciliationStorageFailure)
	assert.ErrorIs(t, err, storageErr)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Reconciliations.WithLabelValues("storage_failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconcileRetries))
}

func TestReconcile_BeginFailureIsStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	txm := mocks.NewMockTransactionManager(ctrl)
	txm.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("pool exhausted"))

	uc := usecase.NewReconciliationUseCase(txm, nil, nil, nil, nil, nil, &seqIDGen{}, nil, nil, zerolog.Nop())

	_, err := uc.Reconcile(context.Background(), "intent-1", nil)
	assert.ErrorIs(t, err, domain.ErrReconciliationStorageFailure)
}

func assertUnreconciled(t *testing.T, h *harness, intent *domain.PaymentIntent) {
	t.Helper()
	ctx := context.Background()

	got, err := h.intents.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusPending, got.Status)
	assert.Empty(t, got.TransactionIDs)

	for _, id := range []string{"platform:main", "partner:lab-7", "client:c1"} {
		assert.True(t, h.balance(t, id).IsZero(), id)
		page, err := h.query.ListTransactions(ctx, usecase.ListTransactionsInput{AccountID: id})
		require.NoError(t, err)
		assert.Empty(t, page.Transactions, id)
	}

	events, err := h.outbox.GetByAggregate(ctx, domain.AggregateTypeIntent, intent.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeIntentCreated, events[0].EventType)
}

func TestReconcile_FailedAllocationWriteRollsBack(t *testing.T) {
	hooked := &hookedTransactions{}
	h := newHarness(t, withTransactions(func(r usecase.TransactionRepository) usecase.TransactionRepository {
		hooked.TransactionRepository = r
		return hooked
	}))
	ctx := context.Background()
	h.configure(t, "exam", "urgent", "platform", "30", "partner", "20", "client", "50")
	intent := h.splitIntent(t, "100.00")

	writeErr := errors.New("disk full")
	hooked.setHook(func(call int) error {
		if call == 2 {
			return writeErr
		}
		return nil
	})

	_, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "100.00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReconciliationStorageFailure)
	assert.ErrorIs(t, err, writeErr)
	assertUnreconciled(t, h, intent)

	hooked.setHook(nil)

	result, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "100.00"))
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	require.Len(t, result.Transactions, 3)
	assert.True(t, h.balance(t, "platform:main").Equal(dec("30")))
	assert.True(t, h.balance(t, "partner:lab-7").Equal(dec("20")))
	assert.True(t, h.balance(t, "client:c1").Equal(dec("50")))

	again, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "100.00"))
	require.NoError(t, err)
	assert.True(t, again.AlreadyProcessed)
	assert.Equal(t, transactionIDs(result.Transactions), transactionIDs(again.Transactions))
	assert.True(t, h.balance(t, "client:c1").Equal(dec("50")))

	summary, err := h.ledger.VerifyAll(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Consistent)
}

func TestReconcile_CancelledBeforeCommitRollsBack(t *testing.T) {
	hooked := &hookedTransactions{}
	h := newHarness(t, withTransactions(func(r usecase.TransactionRepository) usecase.TransactionRepository {
		hooked.TransactionRepository = r
		return hooked
	}))
	h.configure(t, "exam", "urgent", "platform", "30", "partner", "20", "client", "50")
	intent := h.splitIntent(t, "100.00")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every allocation is staged; the caller gives up before commit.
	hooked.setHook(func(call int) error {
		if call == 3 {
			cancel()
		}
		return nil
	})

	_, err := h.reconcile.Reconcile(ctx, intent.ID, paid(intent.ExternalReference, "100.00"))
	assert.ErrorIs(t, err, context.Canceled)
	assertUnreconciled(t, h, intent)

	hooked.setHook(nil)

	result, err := h.reconcile.Reconcile(context.Background(), intent.ID, paid(intent.ExternalReference, "100.00"))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)
	assert.True(t, h.balance(t, "client:c1").Equal(dec("50")))
}
