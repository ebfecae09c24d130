package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

func accountKey(id string) string {
	return "account:" + id
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// EnsureExists stages the account unless it already exists.
func (r *AccountRepository) EnsureExists(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, accountKey(account.ID)); err != nil {
		return err
	}

	if _, ok := t.accounts[account.ID]; ok {
		return nil
	}

	r.store.mu.RLock()
	_, exists := r.store.accounts[account.ID]
	r.store.mu.RUnlock()

	if !exists {
		t.accounts[account.ID] = cloneAccount(account)
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return cloneAccount(acc), nil
}

// GetByIDsForUpdate locks ids in sorted order and returns those that exist.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) ([]*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	accounts := make([]*domain.Account, 0, len(sorted))
	for _, id := range sorted {
		if err := t.lock(ctx, accountKey(id)); err != nil {
			return nil, err
		}

		if acc, ok := t.accounts[id]; ok {
			accounts = append(accounts, cloneAccount(acc))
			continue
		}

		r.store.mu.RLock()
		acc, ok := r.store.accounts[id]
		r.store.mu.RUnlock()

		if ok {
			accounts = append(accounts, cloneAccount(acc))
		}
	}

	return accounts, nil
}

// UpdateBalance stages the account's new balance and version.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, accountKey(account.ID)); err != nil {
		return err
	}

	current, err := r.current(t, account.ID)
	if err != nil {
		return err
	}

	current.Balance = account.Balance
	current.Version = account.Version
	current.UpdatedAt = account.UpdatedAt
	t.accounts[account.ID] = current

	return nil
}

// SetActive stages an activation change.
func (r *AccountRepository) SetActive(ctx context.Context, tx usecase.Tx, id string, active bool, updatedAt time.Time) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, accountKey(id)); err != nil {
		return err
	}

	current, err := r.current(t, id)
	if err != nil {
		return err
	}

	current.Active = active
	current.UpdatedAt = updatedAt
	t.accounts[id] = current

	return nil
}

func (r *AccountRepository) current(t *Tx, id string) (*domain.Account, error) {
	if acc, ok := t.accounts[id]; ok {
		return acc, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return cloneAccount(acc), nil
}

// List lists accounts ordered by ID.
func (r *AccountRepository) List(_ context.Context, filter usecase.AccountFilter) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(r.store.accounts))
	for _, acc := range r.store.accounts {
		if filter.OwnerKind != "" && acc.OwnerKind != filter.OwnerKind {
			continue
		}
		accounts = append(accounts, cloneAccount(acc))
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	return paginate(accounts, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
