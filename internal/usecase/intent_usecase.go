package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
)

// IntentSettings configures purchase intent creation.
type IntentSettings struct {
	PlatformOwnerID  string
	DefaultPartnerID string
	Packages         []domain.CreditPackage
	TTL              time.Duration
	Grace            time.Duration
}

// IntentUseCase creates payment intents and drives them to a terminal state.
type IntentUseCase struct {
	txManager  TransactionManager
	intentRepo IntentRepository
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	splits     *SplitUseCase
	idGen      IDGenerator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	settings   IntentSettings
	clock      Clock
}

// NewIntentUseCase creates a new IntentUseCase.
func NewIntentUseCase(
	txManager TransactionManager,
	intentRepo IntentRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	splits *SplitUseCase,
	idGen IDGenerator,
	settings IntentSettings,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *IntentUseCase {
	if settings.TTL <= 0 {
		settings.TTL = DefaultIntentTTL
	}

	return &IntentUseCase{
		txManager:  txManager,
		intentRepo: intentRepo,
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		splits:     splits,
		idGen:      idGen,
		metrics:    metrics,
		logger:     logger,
		settings:   settings,
		clock:      systemClock,
	}
}

// SetClock overrides the time source.
func (uc *IntentUseCase) SetClock(c Clock) {
	uc.clock = c
}

// Grace returns how long past expiry a confirmation is still honoured.
func (uc *IntentUseCase) Grace() time.Duration {
	return uc.settings.Grace
}

// Packages returns the credit package catalog.
func (uc *IntentUseCase) Packages() []domain.CreditPackage {
	return uc.settings.Packages
}

// CreatePurchaseIntentInput represents input for a credit purchase.
// Exactly one of PackageID and Amount is set.
type CreatePurchaseIntentInput struct {
	OwnerKind         domain.OwnerKind
	OwnerID           string
	PackageID         string
	ServiceCategory   string
	SeverityTier      string
	PartnerID         string
	ExternalReference string
	Description       string
	Amount            decimal.Decimal
	TTL               time.Duration
}

// CreatePurchaseIntent opens a pending intent. With a service category the
// payment is split among the configured recipients; otherwise the buyer's
// own account receives the credits.
func (uc *IntentUseCase) CreatePurchaseIntent(ctx context.Context, input CreatePurchaseIntentInput) (*domain.PaymentIntent, error) {
	if input.OwnerKind != domain.OwnerKindClient && input.OwnerKind != domain.OwnerKindCompany {
		return nil, fmt.Errorf("%w: purchases are made by clients or companies", domain.ErrInvalidOwnerKind)
	}
	if err := domain.ValidateOwner(input.OwnerKind, input.OwnerID); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	price, credits, err := uc.priceOf(input)
	if err != nil {
		return nil, err
	}

	now := uc.clock()

	ttl := input.TTL
	if ttl == 0 {
		ttl = uc.settings.TTL
	}

	ref := strings.TrimSpace(input.ExternalReference)
	if ref == "" {
		ref = uc.idGen.Generate()
	}

	recipients, err := uc.recipients(ctx, input, price)
	if err != nil {
		return nil, err
	}

	intent := &domain.PaymentIntent{
		ID:                uc.idGen.Generate(),
		ExternalReference: ref,
		OwnerID:           input.OwnerID,
		OwnerKind:         input.OwnerKind,
		PackageID:         input.PackageID,
		ServiceCategory:   strings.TrimSpace(input.ServiceCategory),
		SeverityTier:      strings.TrimSpace(input.SeverityTier),
		Description:       input.Description,
		Status:            domain.IntentStatusPending,
		Recipients:        recipients,
		Amount:            price,
		Credits:           credits,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}

	if err := intent.Validate(now); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.intentRepo.Create(txCtx, tx, intent); err != nil {
		return nil, err
	}

	event := domain.NewIntentEvent(uc.idGen.Generate(), domain.EventTypeIntentCreated, intent, now)
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		mode := "single"
		if intent.IsSplit() {
			mode = "split"
		}
		uc.metrics.IntentsCreated.WithLabelValues(mode).Inc()
	}

	uc.logger.Info().
		Str("intent_id", intent.ID).
		Str("external_reference", intent.ExternalReference).
		Str("amount", intent.Amount.String()).
		Int("recipients", len(intent.Recipients)).
		Msg("payment intent created")

	return intent, nil
}

// priceOf returns the money paid and the credits granted.
func (uc *IntentUseCase) priceOf(input CreatePurchaseIntentInput) (decimal.Decimal, decimal.Decimal, error) {
	if input.PackageID == "" {
		if err := domain.ValidateAmount(input.Amount); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		return input.Amount, input.Amount, nil
	}

	if !input.Amount.IsZero() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: give either a package or an amount", domain.ErrInvalidAmount)
	}

	for _, p := range uc.settings.Packages {
		if p.ID == input.PackageID {
			return p.Price, p.Credits, nil
		}
	}

	return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", domain.ErrPackageNotFound, input.PackageID)
}

// recipients resolves who is funded by the intent and checks the split
// can be computed, so configuration errors surface at creation.
func (uc *IntentUseCase) recipients(ctx context.Context, input CreatePurchaseIntentInput, price decimal.Decimal) ([]domain.IntentRecipient, error) {
	ownerAccount := domain.AccountID(input.OwnerKind, input.OwnerID)

	category := strings.TrimSpace(input.ServiceCategory)
	if category == "" {
		kind := domain.RecipientClient
		if input.OwnerKind == domain.OwnerKindCompany {
			kind = domain.RecipientReseller
		}
		return []domain.IntentRecipient{{Kind: kind, AccountID: ownerAccount}}, nil
	}

	cfg, err := uc.splits.Lookup(ctx, category, strings.TrimSpace(input.SeverityTier))
	if err != nil {
		uc.splits.reportConfigError(category, input.SeverityTier, err)
		return nil, err
	}

	partnerID := input.PartnerID
	if partnerID == "" {
		partnerID = uc.settings.DefaultPartnerID
	}

	recipients := make([]domain.IntentRecipient, 0, len(cfg.Shares))
	for _, share := range cfg.Shares {
		var accountID string
		switch share.RecipientKind {
		case domain.RecipientPlatform:
			if uc.settings.PlatformOwnerID != "" {
				accountID = domain.AccountID(domain.OwnerKindPlatform, uc.settings.PlatformOwnerID)
			}
		case domain.RecipientPartner:
			if partnerID != "" {
				if err := domain.ValidateOwner(domain.OwnerKindPartner, partnerID); err != nil {
					return nil, err
				}
				accountID = domain.AccountID(domain.OwnerKindPartner, partnerID)
			}
		case domain.RecipientReseller, domain.RecipientClient:
			accountID = ownerAccount
		}
		if accountID == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnresolvedRecipient, share.RecipientKind)
		}
		recipients = append(recipients, domain.IntentRecipient{Kind: share.RecipientKind, AccountID: accountID})
	}

	draft := &domain.PaymentIntent{Recipients: recipients}
	if _, err := domain.ComputeAllocations(price, cfg, draft.Resolver()); err != nil {
		uc.splits.reportConfigError(category, input.SeverityTier, err)
		return nil, err
	}

	return recipients, nil
}

// GetIntent returns one intent.
func (uc *IntentUseCase) GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return uc.intentRepo.GetByID(ctx, id)
}

// GetByExternalReference returns the intent carrying a gateway reference.
func (uc *IntentUseCase) GetByExternalReference(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	return uc.intentRepo.GetByExternalReference(ctx, ref)
}

// ListByOwner lists an owner's intents, newest first.
func (uc *IntentUseCase) ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID string, limit, offset int) ([]*domain.PaymentIntent, error) {
	if err := domain.ValidateOwner(kind, ownerID); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	return uc.intentRepo.ListByOwner(ctx, kind, ownerID, domain.ValidatePageSize(limit), offset)
}

// Events lists the lifecycle events recorded for an intent, oldest first.
func (uc *IntentUseCase) Events(ctx context.Context, id string, limit, offset int) ([]*domain.OutboxEvent, error) {
	if _, err := uc.intentRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	return uc.outboxRepo.GetByAggregate(ctx, domain.AggregateTypeIntent, id, domain.ValidatePageSize(limit), offset)
}

// Cancel closes a pending intent. Cancelling a cancelled intent is a no-op.
func (uc *IntentUseCase) Cancel(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return uc.closeIntent(ctx, id, domain.IntentStatusCancelled)
}

// Expire closes a pending intent as expired once its deadline and grace
// have passed. Expiring an expired intent is a no-op.
func (uc *IntentUseCase) Expire(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return uc.closeIntent(ctx, id, domain.IntentStatusExpired)
}

func (uc *IntentUseCase) closeIntent(ctx context.Context, id string, target domain.IntentStatus) (*domain.PaymentIntent, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	intent, err := uc.intentRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	if intent.Status == target {
		return intent, nil
	}

	before := *intent
	now := uc.clock()

	if target == domain.IntentStatusExpired && !intent.Status.IsTerminal() && !intent.IsOverdue(now, uc.settings.Grace) {
		return nil, domain.ErrIntentNotDue
	}

	if err := uc.closeLocked(txCtx, tx, intent, target, now); err != nil {
		return nil, err
	}

	if target == domain.IntentStatusCancelled {
		err := recordAudit(txCtx, tx, uc.auditRepo, uc.idGen,
			domain.AuditActionIntentCancel, domain.AggregateTypeIntent, intent.ID, &before, intent, now)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.closed(intent)

	return intent, nil
}

// closeLocked applies an expiry or cancellation to an intent locked in tx.
func (uc *IntentUseCase) closeLocked(ctx context.Context, tx Tx, intent *domain.PaymentIntent, target domain.IntentStatus, now time.Time) error {
	var (
		err       error
		eventType string
	)

	switch target {
	case domain.IntentStatusExpired:
		err = intent.Expire(now)
		eventType = domain.EventTypeIntentExpired
	case domain.IntentStatusCancelled:
		err = intent.Cancel(now)
		eventType = domain.EventTypeIntentCancelled
	default:
		return fmt.Errorf("cannot close intent as %s", target)
	}
	if err != nil {
		return err
	}

	if err := uc.intentRepo.UpdateStatus(ctx, tx, intent); err != nil {
		return err
	}

	return uc.outboxRepo.Create(ctx, tx, domain.NewIntentEvent(uc.idGen.Generate(), eventType, intent, now))
}

func (uc *IntentUseCase) closed(intent *domain.PaymentIntent) {
	if uc.metrics != nil {
		uc.metrics.IntentsClosed.WithLabelValues(string(intent.Status)).Inc()
	}

	uc.logger.Info().
		Str("intent_id", intent.ID).
		Str("status", string(intent.Status)).
		Msg("payment intent closed")
}

// ExpireDue expires pending intents whose deadline and grace have passed
// at now. Each intent is closed in its own transaction; an intent that was
// confirmed or cancelled meanwhile is skipped.
func (uc *IntentUseCase) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = ExpireBatchSize
	}

	due, err := uc.intentRepo.ListDue(ctx, now.Add(-uc.settings.Grace), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range due {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		ok, err := uc.expireIfDue(ctx, candidate.ID, now)
		if err != nil {
			return expired, fmt.Errorf("failed to expire intent %s: %w", candidate.ID, err)
		}
		if ok {
			expired++
		}
	}

	return expired, nil
}

func (uc *IntentUseCase) expireIfDue(ctx context.Context, id string, now time.Time) (bool, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	intent, err := uc.intentRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return false, err
	}

	if intent.Status.IsTerminal() || !intent.IsOverdue(now, uc.settings.Grace) {
		return false, nil
	}

	if err := uc.closeLocked(txCtx, tx, intent, domain.IntentStatusExpired, now); err != nil {
		if errors.Is(err, domain.ErrIntentAlreadyTerminal) {
			return false, nil
		}
		return false, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return false, err
	}

	uc.closed(intent)

	return true, nil
}
