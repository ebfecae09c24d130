package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/postgres/generated"
	"github.com/iho/creditledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// EnsureExists inserts the account unless it already exists.
func (r *AccountRepository) EnsureExists(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	return queries.EnsureAccount(ctx, generated.EnsureAccountParams{
		ID:        account.ID,
		OwnerKind: string(account.OwnerKind),
		OwnerID:   account.OwnerID,
		CreatedAt: timeToPgTimestamptz(account.CreatedAt),
	})
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDsForUpdate locks the existing accounts among ids with FOR UPDATE,
// in ID order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) ([]*domain.Account, error) {
	queries, err := queriesIn(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetAccountsByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// UpdateBalance stores the balance and version reached by the last append.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateAccountBalance(ctx, generated.UpdateAccountBalanceParams{
		ID:        account.ID,
		Balance:   decimalToNumeric(account.Balance),
		Version:   account.Version,
		UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// SetActive opens or closes an account for debits.
func (r *AccountRepository) SetActive(ctx context.Context, tx usecase.Tx, id string, active bool, updatedAt time.Time) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	n, err := queries.SetAccountActive(ctx, generated.SetAccountActiveParams{
		ID:        id,
		Active:    active,
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, error) {
	var kind pgtype.Text
	if filter.OwnerKind != "" {
		kind = pgtype.Text{String: string(filter.OwnerKind), Valid: true}
	}

	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		OwnerKind: kind,
		Limit:     int32(filter.Limit),
		Offset:    int32(filter.Offset),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		OwnerKind: domain.OwnerKind(row.OwnerKind),
		Balance:   numericToDecimal(row.Balance),
		Version:   row.Version,
		Active:    row.Active,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}
