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

// LedgerUseCase appends transactions and keeps materialized balances in step.
type LedgerUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	outboxRepo      OutboxRepository
	auditRepo       AuditRepository
	idGen           IDGenerator
	retrier         Retrier
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	clock           Clock
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		auditRepo:       auditRepo,
		idGen:           idGen,
		retrier:         retrier,
		metrics:         metrics,
		logger:          logger,
		clock:           systemClock,
	}
}

// SetClock overrides the time source.
func (uc *LedgerUseCase) SetClock(c Clock) {
	uc.clock = c
}

// AppendInput describes one ledger entry. The account is given either by
// AccountID or by owner kind and ID.
type AppendInput struct {
	PaymentIntentID  *string
	ServiceReference *string
	AccountID        string
	OwnerKind        domain.OwnerKind
	OwnerID          string
	Kind             domain.TransactionKind
	Description      string
	Amount           decimal.Decimal
}

func (in AppendInput) accountID() (string, error) {
	if in.AccountID != "" {
		if _, _, err := domain.ParseAccountID(in.AccountID); err != nil {
			return "", err
		}
		return in.AccountID, nil
	}
	if err := domain.ValidateOwner(in.OwnerKind, in.OwnerID); err != nil {
		return "", err
	}
	return domain.AccountID(in.OwnerKind, in.OwnerID), nil
}

// Append records one transaction. Usage amounts are negative and rejected
// with domain.ErrInsufficientBalance when the balance cannot cover them.
// Credits create the account on first use.
func (uc *LedgerUseCase) Append(ctx context.Context, input AppendInput) (*domain.Transaction, error) {
	accountID, err := input.accountID()
	if err != nil {
		return nil, err
	}

	candidate := &domain.Transaction{Kind: input.Kind, Amount: input.Amount}
	if err := candidate.ValidateAmount(); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount.Abs()); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.Kind == domain.KindTransfer {
		return nil, fmt.Errorf("%w: transfers go through Transfer", domain.ErrInvalidTransactionKind)
	}

	var result *domain.Transaction

	err = withRetry(ctx, uc.retrier, func() error {
		var err error
		result, err = uc.append(ctx, accountID, input)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) && uc.metrics != nil {
			uc.metrics.InsufficientBalance.Inc()
		}
		return nil, err
	}

	uc.observe(result)

	return result, nil
}

func (uc *LedgerUseCase) append(ctx context.Context, accountID string, input AppendInput) (*domain.Transaction, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := uc.clock()
	credit := input.Amount.IsPositive()

	accounts, err := lockAccounts(txCtx, tx, uc.accountRepo, []string{accountID}, map[string]bool{accountID: credit}, now)
	if err != nil {
		return nil, err
	}

	account := accounts[accountID]
	if account == nil {
		// Unknown accounts hold nothing.
		return nil, &domain.InsufficientBalanceError{
			AccountID: accountID,
			Available: decimal.Zero,
			Requested: input.Amount.Neg(),
		}
	}

	if !credit {
		if err := account.ValidateDebit(input.Amount); err != nil {
			return nil, err
		}
	}

	t := &domain.Transaction{
		ID:               uc.idGen.Generate(),
		Kind:             input.Kind,
		Amount:           input.Amount,
		PaymentIntentID:  input.PaymentIntentID,
		ServiceReference: input.ServiceReference,
		Description:      input.Description,
		CreatedAt:        now,
	}

	if err := uc.post(txCtx, tx, account, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return t, nil
}

// post applies t to a locked account and persists both with an outbox event.
func (uc *LedgerUseCase) post(ctx context.Context, tx Tx, account *domain.Account, t *domain.Transaction) error {
	account.Apply(t)

	if err := uc.transactionRepo.Create(ctx, tx, t); err != nil {
		return err
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, account); err != nil {
		return err
	}

	return uc.outboxRepo.Create(ctx, tx, domain.NewTransactionAppendedEvent(uc.idGen.Generate(), t))
}

func (uc *LedgerUseCase) observe(txs ...*domain.Transaction) {
	if uc.metrics == nil {
		return
	}
	for _, t := range txs {
		uc.metrics.TransactionsAppended.WithLabelValues(string(t.Kind)).Inc()
		uc.metrics.TransactionAmount.WithLabelValues(string(t.Kind)).Observe(t.Amount.Abs().InexactFloat64())
	}
}

// TransferInput represents input for moving credits between accounts.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Description   string
	Amount        decimal.Decimal
}

// Transfer moves credits between two accounts. It returns the debit and
// credit legs, which share one transfer ID.
func (uc *LedgerUseCase) Transfer(ctx context.Context, input TransferInput) ([]*domain.Transaction, error) {
	if _, _, err := domain.ParseAccountID(input.FromAccountID); err != nil {
		return nil, err
	}
	if _, _, err := domain.ParseAccountID(input.ToAccountID); err != nil {
		return nil, err
	}

	transfer := &domain.Transfer{
		ID:            uc.idGen.Generate(),
		FromAccountID: input.FromAccountID,
		ToAccountID:   input.ToAccountID,
		Description:   input.Description,
		Amount:        input.Amount,
	}
	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	var result []*domain.Transaction

	err := withRetry(ctx, uc.retrier, func() error {
		var err error
		result, err = uc.transfer(ctx, transfer)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) && uc.metrics != nil {
			uc.metrics.InsufficientBalance.Inc()
		}
		return nil, err
	}

	uc.observe(result...)
	if uc.metrics != nil {
		uc.metrics.TransfersCreated.Inc()
	}

	return result, nil
}

func (uc *LedgerUseCase) transfer(ctx context.Context, transfer *domain.Transfer) ([]*domain.Transaction, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := uc.clock()

	accounts, err := lockAccounts(txCtx, tx, uc.accountRepo,
		[]string{transfer.FromAccountID, transfer.ToAccountID},
		map[string]bool{transfer.ToAccountID: true},
		now,
	)
	if err != nil {
		return nil, err
	}

	from := accounts[transfer.FromAccountID]
	to := accounts[transfer.ToAccountID]

	if from == nil {
		return nil, &domain.InsufficientBalanceError{
			AccountID: transfer.FromAccountID,
			Available: decimal.Zero,
			Requested: transfer.Amount,
		}
	}

	debit, credit := transfer.Legs()

	if err := from.ValidateDebit(debit.Amount); err != nil {
		return nil, err
	}

	debit.ID = uc.idGen.Generate()
	debit.CreatedAt = now
	credit.ID = uc.idGen.Generate()
	credit.CreatedAt = now

	if err := uc.post(txCtx, tx, from, debit); err != nil {
		return nil, err
	}
	if err := uc.post(txCtx, tx, to, credit); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return []*domain.Transaction{debit, credit}, nil
}

// DeactivateAccount closes an account for debits. Credits still land on it.
func (uc *LedgerUseCase) DeactivateAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := uc.clock()

	accounts, err := lockAccounts(txCtx, tx, uc.accountRepo, []string{accountID}, nil, now)
	if err != nil {
		return nil, err
	}

	account := accounts[accountID]
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	if !account.Active {
		return account, nil
	}

	before := *account
	account.Active = false
	account.UpdatedAt = now

	if err := uc.accountRepo.SetActive(txCtx, tx, accountID, false, now); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(txCtx, tx, domain.NewAccountDeactivatedEvent(uc.idGen.Generate(), account)); err != nil {
		return nil, err
	}

	err = recordAudit(txCtx, tx, uc.auditRepo, uc.idGen,
		domain.AuditActionAccountDeactivate, domain.AggregateTypeAccount, accountID, &before, account, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsDeactivated.Inc()
		uc.metrics.AuditLogsCreated.WithLabelValues(string(domain.AuditActionAccountDeactivate), string(domain.AuditStatusSuccess)).Inc()
	}

	return account, nil
}

// ConsistencyReport is the result of replaying one account's chain.
type ConsistencyReport struct {
	CheckedAt       time.Time
	AccountID       string
	Problem         string
	RecordedBalance decimal.Decimal
	ChainBalance    decimal.Decimal
	Transactions    int
	Consistent      bool
}

// LedgerConsistency summarizes a check across every account.
type LedgerConsistency struct {
	CheckedAt    time.Time
	Inconsistent []*ConsistencyReport
	Accounts     int
	Consistent   bool
}

// VerifyAccount replays an account's transactions and compares the chain
// with the materialized balance.
func (uc *LedgerUseCase) VerifyAccount(ctx context.Context, accountID string) (*ConsistencyReport, error) {
	account, txs, err := uc.snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		CheckedAt:       uc.clock(),
		AccountID:       accountID,
		RecordedBalance: account.Balance,
		Transactions:    len(txs),
		Consistent:      true,
	}

	balance, err := domain.VerifyChain(txs)
	report.ChainBalance = balance

	switch {
	case err != nil:
		report.Consistent = false
		report.Problem = err.Error()
	case !balance.Equal(account.Balance):
		report.Consistent = false
		report.Problem = fmt.Sprintf("materialized balance %s differs from chain balance %s", account.Balance, balance)
	case int64(len(txs)) != account.Version:
		report.Consistent = false
		report.Problem = fmt.Sprintf("account version %d but %d transactions", account.Version, len(txs))
	default:
		for i, t := range txs {
			if t.Sequence != int64(i+1) {
				report.Consistent = false
				report.Problem = fmt.Sprintf("sequence gap at #%d: got %d", i, t.Sequence)
				break
			}
		}
	}

	if uc.metrics != nil {
		result := "consistent"
		if !report.Consistent {
			result = "inconsistent"
		}
		uc.metrics.ConsistencyChecks.WithLabelValues(result).Inc()
	}

	if !report.Consistent {
		uc.logger.Error().
			Str("account_id", accountID).
			Str("problem", report.Problem).
			Msg("ledger inconsistency detected")
	}

	return report, nil
}

// snapshot reads an account and its chain while holding the account lock,
// so no append can land between the two reads.
func (uc *LedgerUseCase) snapshot(ctx context.Context, accountID string) (*domain.Account, []*domain.Transaction, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	locked, err := uc.accountRepo.GetByIDsForUpdate(txCtx, tx, []string{accountID})
	if err != nil {
		return nil, nil, err
	}
	if len(locked) == 0 {
		return nil, nil, domain.ErrAccountNotFound
	}

	txs, err := uc.transactionRepo.ListByAccount(txCtx, accountID)
	if err != nil {
		return nil, nil, err
	}

	return locked[0], txs, nil
}

// VerifyAll checks every account.
func (uc *LedgerUseCase) VerifyAll(ctx context.Context) (*LedgerConsistency, error) {
	const pageSize = 500

	summary := &LedgerConsistency{CheckedAt: uc.clock(), Consistent: true}

	for offset := 0; ; offset += pageSize {
		accounts, err := uc.accountRepo.List(ctx, AccountFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			report, err := uc.VerifyAccount(ctx, account.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to verify account %s: %w", account.ID, err)
			}
			summary.Accounts++
			if !report.Consistent {
				summary.Consistent = false
				summary.Inconsistent = append(summary.Inconsistent, report)
			}
		}

		if len(accounts) < pageSize {
			break
		}
	}

	return summary, nil
}
