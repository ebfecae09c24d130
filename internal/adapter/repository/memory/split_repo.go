package memory

import (
	"context"
	"sort"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// SplitConfigRepository implements usecase.SplitConfigRepository.
type SplitConfigRepository struct {
	store *Store
}

// NewSplitConfigRepository creates a new SplitConfigRepository.
func NewSplitConfigRepository(store *Store) *SplitConfigRepository {
	return &SplitConfigRepository{store: store}
}

// keyTaken reports whether another configuration uses cfg's category and tier.
// Callers hold store.mu.
func (r *SplitConfigRepository) keyTaken(cfg *domain.SplitConfiguration) bool {
	for id, other := range r.store.splits {
		if id != cfg.ID && other.ServiceCategory == cfg.ServiceCategory && other.SeverityTier == cfg.SeverityTier {
			return true
		}
	}
	return false
}

func (r *SplitConfigRepository) stage(tx usecase.Tx, cfg *domain.SplitConfiguration, mustExist bool) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	stored := cloneSplit(cfg)
	check := func() error {
		_, exists := r.store.splits[stored.ID]
		if mustExist && !exists {
			return domain.ErrSplitConfigurationMissing
		}
		if r.keyTaken(stored) {
			return domain.ErrSplitConfigurationExists
		}
		return nil
	}

	r.store.mu.RLock()
	err = check()
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	t.checks = append(t.checks, check)
	t.ops = append(t.ops, func() { r.store.splits[stored.ID] = stored })

	return nil
}

// Create stages a new configuration.
func (r *SplitConfigRepository) Create(_ context.Context, tx usecase.Tx, cfg *domain.SplitConfiguration) error {
	return r.stage(tx, cfg, false)
}

// Update stages a replacement of an existing configuration.
func (r *SplitConfigRepository) Update(_ context.Context, tx usecase.Tx, cfg *domain.SplitConfiguration) error {
	return r.stage(tx, cfg, true)
}

// Delete stages removal of a configuration.
func (r *SplitConfigRepository) Delete(_ context.Context, tx usecase.Tx, id string) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	_, ok := r.store.splits[id]
	r.store.mu.RUnlock()
	if !ok {
		return domain.ErrSplitConfigurationMissing
	}

	t.ops = append(t.ops, func() { delete(r.store.splits, id) })

	return nil
}

// GetByID retrieves a configuration by ID.
func (r *SplitConfigRepository) GetByID(_ context.Context, id string) (*domain.SplitConfiguration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	cfg, ok := r.store.splits[id]
	if !ok {
		return nil, domain.ErrSplitConfigurationMissing
	}

	return cloneSplit(cfg), nil
}

// Find retrieves the configuration for an exact category and tier.
func (r *SplitConfigRepository) Find(_ context.Context, category, tier string) (*domain.SplitConfiguration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, cfg := range r.store.splits {
		if cfg.ServiceCategory == category && cfg.SeverityTier == tier {
			return cloneSplit(cfg), nil
		}
	}

	return nil, domain.ErrSplitConfigurationMissing
}

// List returns every configuration ordered by category and tier.
func (r *SplitConfigRepository) List(_ context.Context) ([]*domain.SplitConfiguration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	configs := make([]*domain.SplitConfiguration, 0, len(r.store.splits))
	for _, cfg := range r.store.splits {
		configs = append(configs, cloneSplit(cfg))
	}

	sort.Slice(configs, func(i, j int) bool {
		if configs[i].ServiceCategory != configs[j].ServiceCategory {
			return configs[i].ServiceCategory < configs[j].ServiceCategory
		}
		return configs[i].SeverityTier < configs[j].SeverityTier
	})

	return configs, nil
}
