package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/postgres/generated"
	"github.com/iho/creditledger/internal/usecase"
)

const splitKeyConstraint = "split_configurations_service_category_severity_tier_key"

// SplitConfigRepository implements usecase.SplitConfigRepository.
type SplitConfigRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewSplitConfigRepository creates a new SplitConfigRepository.
func NewSplitConfigRepository(pool *pgxpool.Pool) *SplitConfigRepository {
	return &SplitConfigRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create stores a configuration within tx.
func (r *SplitConfigRepository) Create(ctx context.Context, tx usecase.Tx, cfg *domain.SplitConfiguration) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	shares, err := json.Marshal(cfg.Shares)
	if err != nil {
		return err
	}

	err = queries.CreateSplitConfiguration(ctx, generated.CreateSplitConfigurationParams{
		ID:              cfg.ID,
		ServiceCategory: cfg.ServiceCategory,
		SeverityTier:    cfg.SeverityTier,
		Shares:          shares,
		CreatedAt:       timeToPgTimestamptz(cfg.CreatedAt),
		UpdatedAt:       timeToPgTimestamptz(cfg.UpdatedAt),
	})

	return splitKeyError(err, cfg)
}

// Update replaces a configuration within tx.
func (r *SplitConfigRepository) Update(ctx context.Context, tx usecase.Tx, cfg *domain.SplitConfiguration) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	shares, err := json.Marshal(cfg.Shares)
	if err != nil {
		return err
	}

	n, err := queries.UpdateSplitConfiguration(ctx, generated.UpdateSplitConfigurationParams{
		ID:              cfg.ID,
		ServiceCategory: cfg.ServiceCategory,
		SeverityTier:    cfg.SeverityTier,
		Shares:          shares,
		UpdatedAt:       timeToPgTimestamptz(cfg.UpdatedAt),
	})
	if err != nil {
		return splitKeyError(err, cfg)
	}
	if n == 0 {
		return domain.ErrSplitConfigurationMissing
	}

	return nil
}

// Delete removes a configuration within tx.
func (r *SplitConfigRepository) Delete(ctx context.Context, tx usecase.Tx, id string) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	n, err := queries.DeleteSplitConfiguration(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSplitConfigurationMissing
	}

	return nil
}

// GetByID retrieves a configuration by ID.
func (r *SplitConfigRepository) GetByID(ctx context.Context, id string) (*domain.SplitConfiguration, error) {
	return splitOrMissing(r.queries.GetSplitConfigurationByID(ctx, id))
}

// Find returns the configuration for an exact category and tier.
func (r *SplitConfigRepository) Find(ctx context.Context, category, tier string) (*domain.SplitConfiguration, error) {
	return splitOrMissing(r.queries.FindSplitConfiguration(ctx, generated.FindSplitConfigurationParams{
		ServiceCategory: category,
		SeverityTier:    tier,
	}))
}

// List returns every configuration ordered by key.
func (r *SplitConfigRepository) List(ctx context.Context) ([]*domain.SplitConfiguration, error) {
	rows, err := r.queries.ListSplitConfigurations(ctx)
	if err != nil {
		return nil, err
	}

	configs := make([]*domain.SplitConfiguration, 0, len(rows))
	for _, row := range rows {
		cfg, err := rowToSplit(row)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

func splitKeyError(err error, cfg *domain.SplitConfiguration) error {
	if isUniqueViolation(err, splitKeyConstraint) {
		return fmt.Errorf("%w: %s/%s", domain.ErrSplitConfigurationExists, cfg.ServiceCategory, cfg.SeverityTier)
	}
	return err
}

func splitOrMissing(row generated.SplitConfiguration, err error) (*domain.SplitConfiguration, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSplitConfigurationMissing
		}
		return nil, err
	}

	return rowToSplit(row)
}

func rowToSplit(row generated.SplitConfiguration) (*domain.SplitConfiguration, error) {
	cfg := &domain.SplitConfiguration{
		ID:              row.ID,
		ServiceCategory: row.ServiceCategory,
		SeverityTier:    row.SeverityTier,
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}

	if err := json.Unmarshal(row.Shares, &cfg.Shares); err != nil {
		return nil, fmt.Errorf("split configuration %s shares: %w", row.ID, err)
	}

	return cfg, nil
}
