package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/postgres/generated"
	"github.com/iho/creditledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create appends a transaction within tx.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	return queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:               t.ID,
		AccountID:        t.AccountID,
		Sequence:         t.Sequence,
		Kind:             string(t.Kind),
		Amount:           decimalToNumeric(t.Amount),
		BalanceBefore:    decimalToNumeric(t.BalanceBefore),
		BalanceAfter:     decimalToNumeric(t.BalanceAfter),
		PaymentIntentID:  textFromPtr(t.PaymentIntentID),
		ServiceReference: textFromPtr(t.ServiceReference),
		TransferID:       textFromPtr(t.TransferID),
		Description:      t.Description,
		CreatedAt:        timeToPgTimestamptz(t.CreatedAt),
	})
}

// ListByIntent returns the transactions posted for a payment intent.
func (r *TransactionRepository) ListByIntent(ctx context.Context, intentID string) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByIntent(ctx, textFromString(intentID))
	if err != nil {
		return nil, err
	}

	return rowsToTransactions(rows), nil
}

// ListByAccount returns an account's full chain, oldest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return rowsToTransactions(rows), nil
}

// ListPage returns matching transactions, newest first.
func (r *TransactionRepository) ListPage(ctx context.Context, filter usecase.TransactionFilter) ([]*domain.Transaction, error) {
	params := generated.ListTransactionsPageParams{
		AccountID:       filter.AccountID,
		FromTime:        optionalTimestamptz(filter.From),
		ToTime:          optionalTimestamptz(filter.To),
		PaymentIntentID: textFromString(filter.PaymentIntentID),
		Limit:           int32(filter.Limit),
	}
	if filter.BeforeSequence > 0 {
		params.BeforeSequence = pgtype.Int8{Int64: filter.BeforeSequence, Valid: true}
	}
	for _, k := range filter.Kinds {
		params.Kinds = append(params.Kinds, string(k))
	}

	rows, err := r.queries.ListTransactionsPage(ctx, params)
	if err != nil {
		return nil, err
	}

	return rowsToTransactions(rows), nil
}

// BalanceAt returns the balance after the last transaction at or before at.
func (r *TransactionRepository) BalanceAt(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	balance, err := r.queries.GetBalanceAt(ctx, generated.GetBalanceAtParams{
		AccountID: accountID,
		CreatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	return numericToDecimal(balance), nil
}

func rowsToTransactions(rows []generated.Transaction) []*domain.Transaction {
	txs := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, &domain.Transaction{
			ID:               row.ID,
			AccountID:        row.AccountID,
			Sequence:         row.Sequence,
			Kind:             domain.TransactionKind(row.Kind),
			Amount:           numericToDecimal(row.Amount),
			BalanceBefore:    numericToDecimal(row.BalanceBefore),
			BalanceAfter:     numericToDecimal(row.BalanceAfter),
			PaymentIntentID:  textPtr(row.PaymentIntentID),
			ServiceReference: textPtr(row.ServiceReference),
			TransferID:       textPtr(row.TransferID),
			Description:      row.Description,
			CreatedAt:        row.CreatedAt.Time,
		})
	}
	return txs
}
