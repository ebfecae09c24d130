package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create stages an appended transaction.
func (r *TransactionRepository) Create(_ context.Context, tx usecase.Tx, transaction *domain.Transaction) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	stored := cloneTransaction(transaction)
	t.ops = append(t.ops, func() {
		r.store.transactions = append(r.store.transactions, stored)
		r.store.byAccount[stored.AccountID] = append(r.store.byAccount[stored.AccountID], stored)
	})

	return nil
}

// ListByIntent returns the transactions funded by an intent in append order.
func (r *TransactionRepository) ListByIntent(_ context.Context, intentID string) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*domain.Transaction
	for _, tr := range r.store.transactions {
		if tr.PaymentIntentID != nil && *tr.PaymentIntentID == intentID {
			result = append(result, cloneTransaction(tr))
		}
	}

	return result, nil
}

// ListByAccount returns an account's chain, oldest first.
func (r *TransactionRepository) ListByAccount(_ context.Context, accountID string) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	chain := r.store.byAccount[accountID]
	result := make([]*domain.Transaction, 0, len(chain))
	for _, tr := range chain {
		result = append(result, cloneTransaction(tr))
	}

	return result, nil
}

// ListPage returns matching transactions, newest first.
func (r *TransactionRepository) ListPage(_ context.Context, filter usecase.TransactionFilter) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	kinds := make(map[domain.TransactionKind]bool, len(filter.Kinds))
	for _, k := range filter.Kinds {
		kinds[k] = true
	}

	chain := r.store.byAccount[filter.AccountID]
	result := make([]*domain.Transaction, 0, filter.Limit)

	for i := len(chain) - 1; i >= 0 && len(result) < filter.Limit; i-- {
		tr := chain[i]

		switch {
		case filter.BeforeSequence > 0 && tr.Sequence >= filter.BeforeSequence:
			continue
		case len(kinds) > 0 && !kinds[tr.Kind]:
			continue
		case filter.From != nil && tr.CreatedAt.Before(*filter.From):
			continue
		case filter.To != nil && tr.CreatedAt.After(*filter.To):
			continue
		case filter.PaymentIntentID != "" && (tr.PaymentIntentID == nil || *tr.PaymentIntentID != filter.PaymentIntentID):
			continue
		}

		result = append(result, cloneTransaction(tr))
	}

	return result, nil
}

// BalanceAt returns the balance after the last transaction at or before at.
func (r *TransactionRepository) BalanceAt(_ context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	chain := r.store.byAccount[accountID]
	for i := len(chain) - 1; i >= 0; i-- {
		if !chain[i].CreatedAt.After(at) {
			return chain[i].BalanceAfter, nil
		}
	}

	return decimal.Zero, nil
}
