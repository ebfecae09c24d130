package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
)

// ErrInvalidCursor is returned for a cursor this service did not issue.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

const cursorPrefix = "seq:"

// QueryUseCase serves read-only views of accounts and history.
type QueryUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository) *QueryUseCase {
	return &QueryUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// GetAccount returns an account.
func (uc *QueryUseCase) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if _, _, err := domain.ParseAccountID(accountID); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByID(ctx, accountID)
}

// GetBalance returns an account's balance. Accounts that were never
// credited do not exist yet and have a zero balance.
func (uc *QueryUseCase) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := uc.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// GetOwnerBalance returns the balance of an owner's account.
func (uc *QueryUseCase) GetOwnerBalance(ctx context.Context, kind domain.OwnerKind, ownerID string) (decimal.Decimal, error) {
	if err := domain.ValidateOwner(kind, ownerID); err != nil {
		return decimal.Zero, err
	}
	return uc.GetBalance(ctx, domain.AccountID(kind, ownerID))
}

// ListAccounts lists accounts, optionally of one owner kind.
func (uc *QueryUseCase) ListAccounts(ctx context.Context, kind domain.OwnerKind, limit, offset int) ([]*domain.Account, error) {
	if kind != "" && !kind.IsValid() {
		return nil, domain.ErrInvalidOwnerKind
	}
	if offset < 0 {
		offset = 0
	}
	return uc.accountRepo.List(ctx, AccountFilter{OwnerKind: kind, Limit: domain.ValidatePageSize(limit), Offset: offset})
}

// ListTransactionsInput selects a page of an account's history.
type ListTransactionsInput struct {
	From            *time.Time
	To              *time.Time
	AccountID       string
	PaymentIntentID string
	Cursor          string
	Kinds           []domain.TransactionKind
	Limit           int
}

// TransactionPage is one page of history, newest first. NextCursor is
// empty on the last page.
type TransactionPage struct {
	NextCursor   string
	Transactions []*domain.Transaction
}

// ListTransactions pages through an account's history newest first.
// Pages are keyed by sequence number, so entries appended while paging
// never shift rows between pages.
func (uc *QueryUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) (*TransactionPage, error) {
	if _, _, err := domain.ParseAccountID(input.AccountID); err != nil {
		return nil, err
	}
	for _, k := range input.Kinds {
		if !k.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTransactionKind, k)
		}
	}

	before, err := DecodeCursor(input.Cursor)
	if err != nil {
		return nil, err
	}

	limit := domain.ValidatePageSize(input.Limit)

	txs, err := uc.transactionRepo.ListPage(ctx, TransactionFilter{
		AccountID:       input.AccountID,
		Kinds:           input.Kinds,
		From:            input.From,
		To:              input.To,
		PaymentIntentID: input.PaymentIntentID,
		BeforeSequence:  before,
		Limit:           limit + 1,
	})
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Transactions: txs}
	if len(txs) > limit {
		page.Transactions = txs[:limit]
		page.NextCursor = EncodeCursor(page.Transactions[limit-1].Sequence)
	}

	return page, nil
}

// BalanceAt returns the balance after the last transaction at or before at.
func (uc *QueryUseCase) BalanceAt(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	if _, _, err := domain.ParseAccountID(accountID); err != nil {
		return decimal.Zero, err
	}
	return uc.transactionRepo.BalanceAt(ctx, accountID, at)
}

// EncodeCursor builds an opaque cursor pointing below sequence.
func EncodeCursor(sequence int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(sequence, 10)))
}

// DecodeCursor returns the exclusive upper sequence of a cursor, or zero
// for an empty cursor.
func DecodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	rest, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, ErrInvalidCursor
	}

	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq <= 0 {
		return 0, ErrInvalidCursor
	}

	return seq, nil
}
