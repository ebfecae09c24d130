package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

type intentServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreatePurchaseIntentInput) (*domain.PaymentIntent, error)
	getFn    func(ctx context.Context, id string) (*domain.PaymentIntent, error)
	listFn   func(ctx context.Context, kind domain.OwnerKind, ownerID string, limit, offset int) ([]*domain.PaymentIntent, error)
	cancelFn func(ctx context.Context, id string) (*domain.PaymentIntent, error)
	eventsFn func(ctx context.Context, id string, limit, offset int) ([]*domain.OutboxEvent, error)
	packages []domain.CreditPackage
}

func (s *intentServiceStub) CreatePurchaseIntent(ctx context.Context, input usecase.CreatePurchaseIntentInput) (*domain.PaymentIntent, error) {
	return s.createFn(ctx, input)
}

func (s *intentServiceStub) GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return s.getFn(ctx, id)
}

func (s *intentServiceStub) ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID string, limit, offset int) ([]*domain.PaymentIntent, error) {
	return s.listFn(ctx, kind, ownerID, limit, offset)
}

func (s *intentServiceStub) Cancel(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return s.cancelFn(ctx, id)
}

func (s *intentServiceStub) Events(ctx context.Context, id string, limit, offset int) ([]*domain.OutboxEvent, error) {
	return s.eventsFn(ctx, id, limit, offset)
}

func (s *intentServiceStub) Packages() []domain.CreditPackage {
	return s.packages
}

type reconcilerStub struct {
	calls   int
	proofs  []*domain.PaymentProof
	resultF func(ref string) (*usecase.ReconciliationResult, error)
}

func (s *reconcilerStub) Reconcile(_ context.Context, intentID string, proof *domain.PaymentProof) (*usecase.ReconciliationResult, error) {
	s.calls++
	s.proofs = append(s.proofs, proof)
	return s.resultF(intentID)
}

func (s *reconcilerStub) ReconcileByExternalReference(_ context.Context, ref string, proof *domain.PaymentProof) (*usecase.ReconciliationResult, error) {
	s.calls++
	s.proofs = append(s.proofs, proof)
	return s.resultF(ref)
}

type accountServiceStub struct {
	getFn          func(ctx context.Context, id string) (*domain.Account, error)
	balanceFn      func(ctx context.Context, id string) (decimal.Decimal, error)
	ownerBalanceFn func(ctx context.Context, kind domain.OwnerKind, ownerID string) (decimal.Decimal, error)
	listFn         func(ctx context.Context, kind domain.OwnerKind, limit, offset int) ([]*domain.Account, error)
	txFn           func(ctx context.Context, input usecase.ListTransactionsInput) (*usecase.TransactionPage, error)
	balanceAtFn    func(ctx context.Context, id string, at time.Time) (decimal.Decimal, error)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *accountServiceStub) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	return s.balanceFn(ctx, id)
}

func (s *accountServiceStub) GetOwnerBalance(ctx context.Context, kind domain.OwnerKind, ownerID string) (decimal.Decimal, error) {
	return s.ownerBalanceFn(ctx, kind, ownerID)
}

func (s *accountServiceStub) ListAccounts(ctx context.Context, kind domain.OwnerKind, limit, offset int) ([]*domain.Account, error) {
	return s.listFn(ctx, kind, limit, offset)
}

func (s *accountServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) (*usecase.TransactionPage, error) {
	return s.txFn(ctx, input)
}

func (s *accountServiceStub) BalanceAt(ctx context.Context, id string, at time.Time) (decimal.Decimal, error) {
	return s.balanceAtFn(ctx, id, at)
}

type ledgerServiceStub struct {
	appendFn     func(ctx context.Context, input usecase.AppendInput) (*domain.Transaction, error)
	transferFn   func(ctx context.Context, input usecase.TransferInput) ([]*domain.Transaction, error)
	deactivateFn func(ctx context.Context, id string) (*domain.Account, error)
	verifyFn     func(ctx context.Context, id string) (*usecase.ConsistencyReport, error)
	verifyAllFn  func(ctx context.Context) (*usecase.LedgerConsistency, error)
}

func (s *ledgerServiceStub) Append(ctx context.Context, input usecase.AppendInput) (*domain.Transaction, error) {
	return s.appendFn(ctx, input)
}

func (s *ledgerServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) ([]*domain.Transaction, error) {
	return s.transferFn(ctx, input)
}

func (s *ledgerServiceStub) DeactivateAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.deactivateFn(ctx, id)
}

func (s *ledgerServiceStub) VerifyAccount(ctx context.Context, id string) (*usecase.ConsistencyReport, error) {
	return s.verifyFn(ctx, id)
}

func (s *ledgerServiceStub) VerifyAll(ctx context.Context) (*usecase.LedgerConsistency, error) {
	return s.verifyAllFn(ctx)
}

type splitServiceStub struct {
	createFn   func(ctx context.Context, input usecase.SplitConfigInput) (*domain.SplitConfiguration, error)
	validateFn func(ctx context.Context) error
}

func (s *splitServiceStub) Create(ctx context.Context, input usecase.SplitConfigInput) (*domain.SplitConfiguration, error) {
	return s.createFn(ctx, input)
}

func (s *splitServiceStub) Update(ctx context.Context, id string, input usecase.SplitConfigInput) (*domain.SplitConfiguration, error) {
	return nil, domain.ErrSplitConfigurationMissing
}

func (s *splitServiceStub) Delete(ctx context.Context, id string) error {
	return domain.ErrSplitConfigurationMissing
}

func (s *splitServiceStub) Get(ctx context.Context, id string) (*domain.SplitConfiguration, error) {
	return nil, domain.ErrSplitConfigurationMissing
}

func (s *splitServiceStub) List(ctx context.Context) ([]*domain.SplitConfiguration, error) {
	return nil, nil
}

func (s *splitServiceStub) ValidateAll(ctx context.Context) error {
	return s.validateFn(ctx)
}

func pendingIntent(id string) *domain.PaymentIntent {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &domain.PaymentIntent{
		ID:                id,
		ExternalReference: "ref-" + id,
		OwnerKind:         domain.OwnerKindClient,
		OwnerID:           "c1",
		Status:            domain.IntentStatusPending,
		Amount:            decimal.NewFromInt(100),
		Credits:           decimal.NewFromInt(100),
		Recipients:        []domain.IntentRecipient{{Kind: domain.RecipientClient, AccountID: "client:c1"}},
		CreatedAt:         now,
		ExpiresAt:         now.Add(time.Hour),
	}
}
