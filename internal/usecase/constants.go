package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultIntentTTL is how long a purchase intent waits for confirmation
	DefaultIntentTTL = 30 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DeliveryDedupTTL is how long webhook delivery IDs are remembered
	DeliveryDedupTTL = 72 * time.Hour

	// ExpireBatchSize bounds one expiry sweep
	ExpireBatchSize = 100
)
