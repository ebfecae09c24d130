package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
)

// SplitUseCase manages split configurations and computes allocations.
type SplitUseCase struct {
	txManager  TransactionManager
	splitRepo  SplitConfigRepository
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	clock      Clock
}

// NewSplitUseCase creates a new SplitUseCase.
func NewSplitUseCase(
	txManager TransactionManager,
	splitRepo SplitConfigRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *SplitUseCase {
	return &SplitUseCase{
		txManager:  txManager,
		splitRepo:  splitRepo,
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		idGen:      idGen,
		metrics:    metrics,
		logger:     logger,
		clock:      systemClock,
	}
}

// SetClock overrides the time source.
func (uc *SplitUseCase) SetClock(c Clock) {
	uc.clock = c
}

// Lookup returns the configuration for (category, tier), falling back to
// the category-only configuration.
func (uc *SplitUseCase) Lookup(ctx context.Context, category, tier string) (*domain.SplitConfiguration, error) {
	if tier != "" {
		cfg, err := uc.splitRepo.Find(ctx, category, tier)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, domain.ErrSplitConfigurationMissing) {
			return nil, err
		}
	}

	cfg, err := uc.splitRepo.Find(ctx, category, "")
	if err != nil {
		if errors.Is(err, domain.ErrSplitConfigurationMissing) {
			return nil, fmt.Errorf("%w for %q tier %q", domain.ErrNoSplitConfiguration, category, tier)
		}
		return nil, err
	}

	return cfg, nil
}

// ComputeSplits divides total among the recipients configured for the
// category and tier.
func (uc *SplitUseCase) ComputeSplits(
	ctx context.Context,
	total decimal.Decimal,
	category, tier string,
	resolver domain.RecipientResolver,
) ([]domain.SplitAllocation, error) {
	cfg, err := uc.Lookup(ctx, category, tier)
	if err != nil {
		uc.reportConfigError(category, tier, err)
		return nil, err
	}

	allocations, err := domain.ComputeAllocations(total, cfg, resolver)
	if err != nil {
		uc.reportConfigError(category, tier, err)
		return nil, err
	}

	return allocations, nil
}

// reportConfigError alerts operators about configuration problems.
func (uc *SplitUseCase) reportConfigError(category, tier string, err error) {
	if !errors.Is(err, domain.ErrNoSplitConfiguration) && !errors.Is(err, domain.ErrInvalidSplitConfiguration) {
		return
	}

	uc.logger.Error().
		Err(err).
		Str("service_category", category).
		Str("severity_tier", tier).
		Msg("split configuration error")

	if uc.metrics != nil {
		uc.metrics.SplitConfigErrors.Inc()
	}
}

// SplitConfigInput holds the writable fields of a configuration.
type SplitConfigInput struct {
	ServiceCategory string
	SeverityTier    string
	Shares          []domain.SplitShare
}

// Create validates and stores a new configuration.
func (uc *SplitUseCase) Create(ctx context.Context, input SplitConfigInput) (*domain.SplitConfiguration, error) {
	now := uc.clock()
	cfg := &domain.SplitConfiguration{
		ID:              uc.idGen.Generate(),
		ServiceCategory: strings.TrimSpace(input.ServiceCategory),
		SeverityTier:    strings.TrimSpace(input.SeverityTier),
		Shares:          input.Shares,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	err := uc.write(ctx, domain.AuditActionSplitConfigCreate, "created", nil, cfg, func(txCtx context.Context, tx Tx) error {
		return uc.splitRepo.Create(txCtx, tx, cfg)
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Update replaces the shares (and key) of an existing configuration.
func (uc *SplitUseCase) Update(ctx context.Context, id string, input SplitConfigInput) (*domain.SplitConfiguration, error) {
	existing, err := uc.splitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cfg := &domain.SplitConfiguration{
		ID:              existing.ID,
		ServiceCategory: strings.TrimSpace(input.ServiceCategory),
		SeverityTier:    strings.TrimSpace(input.SeverityTier),
		Shares:          input.Shares,
		CreatedAt:       existing.CreatedAt,
		UpdatedAt:       uc.clock(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	err = uc.write(ctx, domain.AuditActionSplitConfigUpdate, "updated", existing, cfg, func(txCtx context.Context, tx Tx) error {
		return uc.splitRepo.Update(txCtx, tx, cfg)
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Delete removes a configuration.
func (uc *SplitUseCase) Delete(ctx context.Context, id string) error {
	existing, err := uc.splitRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return uc.write(ctx, domain.AuditActionSplitConfigDelete, "deleted", existing, nil, func(txCtx context.Context, tx Tx) error {
		return uc.splitRepo.Delete(txCtx, tx, id)
	})
}

func (uc *SplitUseCase) write(
	ctx context.Context,
	action domain.AuditAction,
	change string,
	before, after *domain.SplitConfiguration,
	persist func(context.Context, Tx) error,
) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := persist(txCtx, tx); err != nil {
		return err
	}

	subject := after
	if subject == nil {
		subject = before
	}
	now := uc.clock()

	if err := uc.outboxRepo.Create(txCtx, tx, domain.NewSplitConfigEvent(uc.idGen.Generate(), change, subject, now)); err != nil {
		return err
	}

	var beforeState, afterState any
	if before != nil {
		beforeState = before
	}
	if after != nil {
		afterState = after
	}

	err = recordAudit(txCtx, tx, uc.auditRepo, uc.idGen, action, domain.AggregateTypeSplitConfig, subject.ID, beforeState, afterState, now)
	if err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(string(action), string(domain.AuditStatusSuccess)).Inc()
	}

	uc.logger.Info().
		Str("split_configuration_id", subject.ID).
		Str("service_category", subject.ServiceCategory).
		Str("severity_tier", subject.SeverityTier).
		Str("change", change).
		Msg("split configuration changed")

	return nil
}

// Get returns one configuration.
func (uc *SplitUseCase) Get(ctx context.Context, id string) (*domain.SplitConfiguration, error) {
	return uc.splitRepo.GetByID(ctx, id)
}

// List returns every configuration.
func (uc *SplitUseCase) List(ctx context.Context) ([]*domain.SplitConfiguration, error) {
	return uc.splitRepo.List(ctx)
}

// ValidateAll checks every stored configuration independently of any
// payment. The returned error joins every invalid configuration.
func (uc *SplitUseCase) ValidateAll(ctx context.Context) error {
	configs, err := uc.splitRepo.List(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			uc.reportConfigError(cfg.ServiceCategory, cfg.SeverityTier, err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
