package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase turns a confirmed payment into ledger transactions
// exactly once per intent.
type ReconciliationUseCase struct {
	txManager       TransactionManager
	intentRepo      IntentRepository
	transactionRepo TransactionRepository
	ledger          *LedgerUseCase
	intents         *IntentUseCase
	splits          *SplitUseCase
	idGen           IDGenerator
	retrier         Retrier
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	clock           Clock
}

// NewReconciliationUseCase creates a new ReconciliationUseCase.
func NewReconciliationUseCase(
	txManager TransactionManager,
	intentRepo IntentRepository,
	transactionRepo TransactionRepository,
	ledger *LedgerUseCase,
	intents *IntentUseCase,
	splits *SplitUseCase,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager:       txManager,
		intentRepo:      intentRepo,
		transactionRepo: transactionRepo,
		ledger:          ledger,
		intents:         intents,
		splits:          splits,
		idGen:           idGen,
		retrier:         retrier,
		metrics:         metrics,
		logger:          logger,
		clock:           systemClock,
	}
}

// SetClock overrides the time source.
func (uc *ReconciliationUseCase) SetClock(c Clock) {
	uc.clock = c
}

// ReconciliationResult is the outcome of a reconcile call. A replay on a
// confirmed intent returns AlreadyProcessed with the original transactions.
type ReconciliationResult struct {
	Intent           *domain.PaymentIntent
	Transactions     []*domain.Transaction
	AlreadyProcessed bool
}

// errors that describe the request rather than the storage layer
var reconcileRequestErrors = []error{
	domain.ErrIntentNotFound,
	domain.ErrIntentAlreadyTerminal,
	domain.ErrNoSplitConfiguration,
	domain.ErrInvalidSplitConfiguration,
	domain.ErrUnresolvedRecipient,
	domain.ErrProofAmountMismatch,
	domain.ErrInvalidProof,
	domain.ErrProofTooLarge,
	domain.ErrInvalidAmount,
	domain.ErrInvalidAccountID,
	context.Canceled,
	context.DeadlineExceeded,
}

// Reconcile confirms a pending intent with proof and credits every
// recipient in one unit of work. Calling it again for a confirmed intent,
// with any proof, returns the first call's transactions.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, intentID string, proof *domain.PaymentProof) (*ReconciliationResult, error) {
	start := time.Now()

	var result *ReconciliationResult
	attempts := 0

	err := withRetry(ctx, uc.retrier, func() error {
		attempts++
		var err error
		result, err = uc.reconcile(ctx, intentID, proof)
		return err
	})

	if uc.metrics != nil {
		uc.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
		if attempts > 1 {
			uc.metrics.ReconcileRetries.Add(float64(attempts - 1))
		}
	}

	if err != nil {
		err = classifyReconcileError(err)
		uc.recordOutcome(intentID, err)
		return nil, err
	}

	if result.AlreadyProcessed {
		uc.observe("already_processed")
	} else {
		uc.recordOutcome(intentID, nil)
	}

	return result, nil
}

// ReconcileByExternalReference reconciles the intent carrying a gateway reference.
func (uc *ReconciliationUseCase) ReconcileByExternalReference(ctx context.Context, ref string, proof *domain.PaymentProof) (*ReconciliationResult, error) {
	intent, err := uc.intentRepo.GetByExternalReference(ctx, ref)
	if err != nil {
		if !errors.Is(err, domain.ErrIntentNotFound) {
			err = classifyReconcileError(err)
		}
		return nil, err
	}

	return uc.Reconcile(ctx, intent.ID, proof)
}

func classifyReconcileError(err error) error {
	for _, known := range reconcileRequestErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrReconciliationStorageFailure, err)
}

func (uc *ReconciliationUseCase) reconcile(ctx context.Context, intentID string, proof *domain.PaymentProof) (*ReconciliationResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	intent, err := uc.intentRepo.GetByIDForUpdate(txCtx, tx, intentID)
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case domain.IntentStatusConfirmed:
		txs, err := uc.transactionRepo.ListByIntent(txCtx, intent.ID)
		if err != nil {
			return nil, err
		}
		return &ReconciliationResult{Intent: intent, Transactions: txs, AlreadyProcessed: true}, nil

	case domain.IntentStatusExpired, domain.IntentStatusCancelled:
		return nil, &domain.IntentTerminalError{IntentID: intent.ID, Status: intent.Status, Target: domain.IntentStatusConfirmed}
	}

	now := uc.clock()

	if intent.IsOverdue(now, uc.intents.Grace()) {
		if err := uc.intents.closeLocked(txCtx, tx, intent, domain.IntentStatusExpired, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(txCtx); err != nil {
			return nil, err
		}
		uc.intents.closed(intent)

		return nil, &domain.IntentTerminalError{IntentID: intent.ID, Status: intent.Status, Target: domain.IntentStatusConfirmed}
	}

	record, err := checkProof(intent, proof)
	if err != nil {
		return nil, err
	}

	allocations, err := uc.allocate(txCtx, intent)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(allocations))
	create := make(map[string]bool, len(allocations))
	for _, a := range allocations {
		ids = append(ids, a.AccountID)
		create[a.AccountID] = true
	}

	accounts, err := lockAccounts(txCtx, tx, uc.ledger.accountRepo, ids, create, now)
	if err != nil {
		return nil, err
	}

	txs := make([]*domain.Transaction, 0, len(allocations))
	txIDs := make([]string, 0, len(allocations))

	for _, a := range allocations {
		t := &domain.Transaction{
			ID:              uc.idGen.Generate(),
			Kind:            domain.KindPurchase,
			Amount:          a.Amount,
			PaymentIntentID: &intent.ID,
			Description:     purchaseDescription(intent, a),
			CreatedAt:       now,
		}

		if err := uc.ledger.post(txCtx, tx, accounts[a.AccountID], t); err != nil {
			return nil, err
		}

		txs = append(txs, t)
		txIDs = append(txIDs, t.ID)
	}

	if err := intent.Confirm(now, record, txIDs); err != nil {
		return nil, err
	}

	if err := uc.intentRepo.UpdateStatus(txCtx, tx, intent); err != nil {
		return nil, err
	}

	event := domain.NewIntentEvent(uc.idGen.Generate(), domain.EventTypeIntentConfirmed, intent, now)
	if err := uc.ledger.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.ledger.observe(txs...)
	if uc.metrics != nil {
		uc.metrics.IntentsClosed.WithLabelValues(string(intent.Status)).Inc()
		for _, a := range allocations {
			uc.metrics.SplitAllocationAmount.WithLabelValues(string(a.RecipientKind)).Observe(a.Amount.InexactFloat64())
		}
	}

	uc.logger.Info().
		Str("intent_id", intent.ID).
		Str("external_reference", intent.ExternalReference).
		Int("transactions", len(txs)).
		Msg("payment intent reconciled")

	return &ReconciliationResult{Intent: intent, Transactions: txs}, nil
}

func checkProof(intent *domain.PaymentIntent, proof *domain.PaymentProof) (map[string]any, error) {
	if proof == nil {
		return nil, nil
	}

	if proof.Status != "" && proof.Status != domain.ProofStatusPaid {
		return nil, fmt.Errorf("%w: status %s", domain.ErrInvalidProof, proof.Status)
	}
	if proof.ExternalReference != "" && proof.ExternalReference != intent.ExternalReference {
		return nil, fmt.Errorf("%w: reference %q does not match intent", domain.ErrInvalidProof, proof.ExternalReference)
	}
	if err := proof.CheckAmount(intent.Amount); err != nil {
		return nil, err
	}

	record := proof.Record()
	if err := domain.ValidateProof(record); err != nil {
		return nil, err
	}

	return record, nil
}

// allocate divides the payment. Zero allocations are dropped because the
// ledger holds no empty entries.
func (uc *ReconciliationUseCase) allocate(ctx context.Context, intent *domain.PaymentIntent) ([]domain.SplitAllocation, error) {
	if !intent.IsSplit() {
		r := intent.Recipients[0]
		return []domain.SplitAllocation{{
			RecipientKind: r.Kind,
			AccountID:     r.AccountID,
			Percentage:    decimal.NewFromInt(100),
			Amount:        intent.Credits,
		}}, nil
	}

	allocations, err := uc.splits.ComputeSplits(ctx, intent.Amount, intent.ServiceCategory, intent.SeverityTier, intent.Resolver())
	if err != nil {
		return nil, err
	}

	out := allocations[:0]
	for _, a := range allocations {
		if a.Amount.IsPositive() {
			out = append(out, a)
		}
	}

	return out, nil
}

func purchaseDescription(intent *domain.PaymentIntent, a domain.SplitAllocation) string {
	if intent.Description != "" && !intent.IsSplit() {
		return intent.Description
	}
	if intent.IsSplit() {
		return fmt.Sprintf("%s share (%s%%) of payment %s", a.RecipientKind, a.Percentage, intent.ExternalReference)
	}
	return "credit purchase " + intent.ExternalReference
}

func (uc *ReconciliationUseCase) recordOutcome(intentID string, err error) {
	switch {
	case err == nil:
		uc.observe("ok")
	case errors.Is(err, domain.ErrIntentAlreadyTerminal):
		uc.observe("terminal")
		uc.logger.Warn().Err(err).Str("intent_id", intentID).Msg("confirmation for closed intent rejected")
	case errors.Is(err, domain.ErrReconciliationStorageFailure):
		uc.observe("storage_failure")
		uc.logger.Error().Err(err).Str("intent_id", intentID).Msg("reconciliation storage failure")
	default:
		uc.observe("rejected")
		uc.logger.Warn().Err(err).Str("intent_id", intentID).Msg("reconciliation rejected")
	}
}

func (uc *ReconciliationUseCase) observe(outcome string) {
	if uc.metrics != nil {
		uc.metrics.Reconciliations.WithLabelValues(outcome).Inc()
	}
}
