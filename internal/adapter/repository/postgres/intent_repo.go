package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/postgres/generated"
	"github.com/iho/creditledger/internal/usecase"
)

const externalReferenceConstraint = "payment_intents_external_reference_key"

// IntentRepository implements usecase.IntentRepository.
type IntentRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewIntentRepository creates a new IntentRepository.
func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create stores a pending intent within tx.
func (r *IntentRepository) Create(ctx context.Context, tx usecase.Tx, intent *domain.PaymentIntent) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	recipients, err := json.Marshal(intent.Recipients)
	if err != nil {
		return err
	}

	err = queries.CreatePaymentIntent(ctx, generated.CreatePaymentIntentParams{
		ID:                intent.ID,
		ExternalReference: intent.ExternalReference,
		OwnerKind:         string(intent.OwnerKind),
		OwnerID:           intent.OwnerID,
		PackageID:         intent.PackageID,
		ServiceCategory:   intent.ServiceCategory,
		SeverityTier:      intent.SeverityTier,
		Description:       intent.Description,
		Status:            string(intent.Status),
		Recipients:        recipients,
		Amount:            decimalToNumeric(intent.Amount),
		Credits:           decimalToNumeric(intent.Credits),
		CreatedAt:         timeToPgTimestamptz(intent.CreatedAt),
		ExpiresAt:         timeToPgTimestamptz(intent.ExpiresAt),
	})
	if isUniqueViolation(err, externalReferenceConstraint) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateReference, intent.ExternalReference)
	}

	return err
}

// GetByID retrieves an intent by ID.
func (r *IntentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	return intentOrNotFound(r.queries.GetPaymentIntentByID(ctx, id))
}

// GetByIDForUpdate retrieves an intent with a FOR UPDATE lock.
func (r *IntentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.PaymentIntent, error) {
	queries, err := queriesIn(tx)
	if err != nil {
		return nil, err
	}

	return intentOrNotFound(queries.GetPaymentIntentByIDForUpdate(ctx, id))
}

// GetByExternalReference retrieves the intent carrying a gateway reference.
func (r *IntentRepository) GetByExternalReference(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	return intentOrNotFound(r.queries.GetPaymentIntentByReference(ctx, ref))
}

// UpdateStatus closes a pending intent. The update only matches pending
// rows, so a concurrent close makes it fail with ErrIntentAlreadyTerminal.
func (r *IntentRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, intent *domain.PaymentIntent) error {
	queries, err := queriesIn(tx)
	if err != nil {
		return err
	}

	params := generated.ClosePaymentIntentParams{
		ID:          intent.ID,
		Status:      string(intent.Status),
		ConfirmedAt: optionalTimestamptz(intent.ConfirmedAt),
		ClosedAt:    optionalTimestamptz(intent.ClosedAt),
	}
	if len(intent.TransactionIDs) > 0 {
		if params.TransactionIds, err = json.Marshal(intent.TransactionIDs); err != nil {
			return err
		}
	}
	if intent.Proof != nil {
		if params.Proof, err = json.Marshal(intent.Proof); err != nil {
			return err
		}
	}

	n, err := queries.ClosePaymentIntent(ctx, params)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := intentOrNotFound(queries.GetPaymentIntentByID(ctx, intent.ID)); err != nil {
		return err
	}

	return domain.ErrIntentAlreadyTerminal
}

// ListDue returns pending intents whose expiry is before the given time.
func (r *IntentRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.PaymentIntent, error) {
	rows, err := r.queries.ListDuePaymentIntents(ctx, generated.ListDuePaymentIntentsParams{
		ExpiresAt: timeToPgTimestamptz(before),
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, err
	}

	return rowsToIntents(rows)
}

// ListByOwner lists an owner's intents, newest first.
func (r *IntentRepository) ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID string, limit, offset int) ([]*domain.PaymentIntent, error) {
	rows, err := r.queries.ListPaymentIntentsByOwner(ctx, generated.ListPaymentIntentsByOwnerParams{
		OwnerKind: string(kind),
		OwnerID:   ownerID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToIntents(rows)
}

func intentOrNotFound(row generated.PaymentIntent, err error) (*domain.PaymentIntent, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIntentNotFound
		}
		return nil, err
	}

	return rowToIntent(row)
}

func rowsToIntents(rows []generated.PaymentIntent) ([]*domain.PaymentIntent, error) {
	intents := make([]*domain.PaymentIntent, 0, len(rows))
	for _, row := range rows {
		intent, err := rowToIntent(row)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

func rowToIntent(row generated.PaymentIntent) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{
		ID:                row.ID,
		ExternalReference: row.ExternalReference,
		OwnerID:           row.OwnerID,
		OwnerKind:         domain.OwnerKind(row.OwnerKind),
		PackageID:         row.PackageID,
		ServiceCategory:   row.ServiceCategory,
		SeverityTier:      row.SeverityTier,
		Description:       row.Description,
		Status:            domain.IntentStatus(row.Status),
		Amount:            numericToDecimal(row.Amount),
		Credits:           numericToDecimal(row.Credits),
		CreatedAt:         row.CreatedAt.Time,
		ExpiresAt:         row.ExpiresAt.Time,
		ConfirmedAt:       timestamptzPtr(row.ConfirmedAt),
		ClosedAt:          timestamptzPtr(row.ClosedAt),
	}

	if err := json.Unmarshal(row.Recipients, &intent.Recipients); err != nil {
		return nil, fmt.Errorf("intent %s recipients: %w", row.ID, err)
	}
	if row.TransactionIds != nil {
		if err := json.Unmarshal(row.TransactionIds, &intent.TransactionIDs); err != nil {
			return nil, fmt.Errorf("intent %s transaction IDs: %w", row.ID, err)
		}
	}
	if row.Proof != nil {
		if err := json.Unmarshal(row.Proof, &intent.Proof); err != nil {
			return nil, fmt.Errorf("intent %s proof: %w", row.ID, err)
		}
	}

	return intent, nil
}
