package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	// EnsureExists inserts the account unless one with the same ID exists.
	EnsureExists(ctx context.Context, tx Tx, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIDsForUpdate locks the existing accounts among ids in ID order.
	GetByIDsForUpdate(ctx context.Context, tx Tx, ids []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Tx, account *domain.Account) error
	SetActive(ctx context.Context, tx Tx, id string, active bool, updatedAt time.Time) error
	List(ctx context.Context, filter AccountFilter) ([]*domain.Account, error)
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	OwnerKind domain.OwnerKind
	Limit     int
	Offset    int
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Tx, transaction *domain.Transaction) error
	ListByIntent(ctx context.Context, intentID string) ([]*domain.Transaction, error)
	// ListByAccount returns the full chain of an account, oldest first.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error)
	// ListPage returns matching transactions, newest first.
	ListPage(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)
	BalanceAt(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error)
}

// TransactionFilter selects one page of an account's history.
// BeforeSequence is exclusive; zero starts from the newest entry.
type TransactionFilter struct {
	From            *time.Time
	To              *time.Time
	AccountID       string
	PaymentIntentID string
	Kinds           []domain.TransactionKind
	BeforeSequence  int64
	Limit           int
}

// IntentRepository defines data access for payment intents.
type IntentRepository interface {
	Create(ctx context.Context, tx Tx, intent *domain.PaymentIntent) error
	GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.PaymentIntent, error)
	GetByExternalReference(ctx context.Context, ref string) (*domain.PaymentIntent, error)
	// UpdateStatus persists a transition out of pending. It fails with
	// domain.ErrIntentAlreadyTerminal when the stored intent is no longer pending.
	UpdateStatus(ctx context.Context, tx Tx, intent *domain.PaymentIntent) error
	// ListDue returns pending intents whose expiry is before the given time.
	ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.PaymentIntent, error)
	ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID string, limit, offset int) ([]*domain.PaymentIntent, error)
}

// SplitConfigRepository defines data access for split configurations.
type SplitConfigRepository interface {
	Create(ctx context.Context, tx Tx, cfg *domain.SplitConfiguration) error
	Update(ctx context.Context, tx Tx, cfg *domain.SplitConfiguration) error
	Delete(ctx context.Context, tx Tx, id string) error
	GetByID(ctx context.Context, id string) (*domain.SplitConfiguration, error)
	// Find returns the configuration for an exact category and tier.
	Find(ctx context.Context, category, tier string) (*domain.SplitConfiguration, error)
	List(ctx context.Context) ([]*domain.SplitConfiguration, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Tx, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Tx, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Tx represents a database transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Retrier re-runs an operation while it fails with a transient storage error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// DeliveryDeduper remembers processed webhook deliveries.
type DeliveryDeduper interface {
	// FirstSeen reports whether id has not been recorded before, recording it.
	FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, id string) error
}
