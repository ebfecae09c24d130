package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

func intentKey(id string) string {
	return "intent:" + id
}

// IntentRepository implements usecase.IntentRepository.
type IntentRepository struct {
	store *Store
}

// NewIntentRepository creates a new IntentRepository.
func NewIntentRepository(store *Store) *IntentRepository {
	return &IntentRepository{store: store}
}

// Create stages a new intent. External references are unique.
func (r *IntentRepository) Create(ctx context.Context, tx usecase.Tx, intent *domain.PaymentIntent) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, intentKey(intent.ID)); err != nil {
		return err
	}

	ref := intent.ExternalReference
	taken := func() error {
		if _, ok := r.store.intentRefs[ref]; ok {
			return domain.ErrDuplicateReference
		}
		return nil
	}

	r.store.mu.RLock()
	err = taken()
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	for _, staged := range t.intents {
		if staged.ExternalReference == ref {
			return domain.ErrDuplicateReference
		}
	}

	t.intents[intent.ID] = cloneIntent(intent)
	t.checks = append(t.checks, taken)

	return nil
}

// GetByID retrieves an intent by ID.
func (r *IntentRepository) GetByID(_ context.Context, id string) (*domain.PaymentIntent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	intent, ok := r.store.intents[id]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}

	return cloneIntent(intent), nil
}

// GetByIDForUpdate locks and retrieves an intent.
func (r *IntentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.PaymentIntent, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, intentKey(id)); err != nil {
		return nil, err
	}

	if intent, ok := t.intents[id]; ok {
		return cloneIntent(intent), nil
	}

	return r.GetByID(ctx, id)
}

// GetByExternalReference retrieves an intent by its gateway reference.
func (r *IntentRepository) GetByExternalReference(_ context.Context, ref string) (*domain.PaymentIntent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.intentRefs[ref]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}

	return cloneIntent(r.store.intents[id]), nil
}

// UpdateStatus stages a transition out of pending.
func (r *IntentRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, intent *domain.PaymentIntent) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, intentKey(intent.ID)); err != nil {
		return err
	}

	current, ok := t.intents[intent.ID]
	if !ok {
		r.store.mu.RLock()
		current, ok = r.store.intents[intent.ID]
		r.store.mu.RUnlock()
	}
	if !ok {
		return domain.ErrIntentNotFound
	}
	if current.Status != domain.IntentStatusPending {
		return domain.ErrIntentAlreadyTerminal
	}

	t.intents[intent.ID] = cloneIntent(intent)

	return nil
}

// ListDue returns pending intents expiring before the given time, earliest first.
func (r *IntentRepository) ListDue(_ context.Context, before time.Time, limit int) ([]*domain.PaymentIntent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var due []*domain.PaymentIntent
	for _, intent := range r.store.intents {
		if intent.Status == domain.IntentStatusPending && intent.ExpiresAt.Before(before) {
			due = append(due, cloneIntent(intent))
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })

	return paginate(due, limit, 0), nil
}

// ListByOwner lists an owner's intents, newest first.
func (r *IntentRepository) ListByOwner(_ context.Context, kind domain.OwnerKind, ownerID string, limit, offset int) ([]*domain.PaymentIntent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var intents []*domain.PaymentIntent
	for _, intent := range r.store.intents {
		if intent.OwnerKind == kind && intent.OwnerID == ownerID {
			intents = append(intents, cloneIntent(intent))
		}
	}

	sort.Slice(intents, func(i, j int) bool {
		if intents[i].CreatedAt.Equal(intents[j].CreatedAt) {
			return intents[i].ID > intents[j].ID
		}
		return intents[i].CreatedAt.After(intents[j].CreatedAt)
	})

	return paginate(intents, limit, offset), nil
}
