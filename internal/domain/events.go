package domain

import "time"

// Event types
const (
	EventTypeIntentCreated       = "intent.created"
	EventTypeIntentConfirmed     = "intent.confirmed"
	EventTypeIntentExpired       = "intent.expired"
	EventTypeIntentCancelled     = "intent.cancelled"
	EventTypeTransactionAppended = "ledger.transaction.appended"
	EventTypeSplitConfigChanged  = "split_configuration.changed"
	EventTypeAccountDeactivated  = "account.deactivated"
)

// Aggregate types
const (
	AggregateTypeIntent      = "payment_intent"
	AggregateTypeAccount     = "account"
	AggregateTypeSplitConfig = "split_configuration"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewTransactionAppendedEvent describes one appended ledger entry.
func NewTransactionAppendedEvent(id string, tx *Transaction) *OutboxEvent {
	payload := map[string]any{
		"transaction_id": tx.ID,
		"account_id":     tx.AccountID,
		"kind":           string(tx.Kind),
		"amount":         tx.Amount.String(),
		"balance_after":  tx.BalanceAfter.String(),
		"sequence":       tx.Sequence,
	}
	if tx.PaymentIntentID != nil {
		payload["payment_intent_id"] = *tx.PaymentIntentID
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   tx.AccountID,
		AggregateType: AggregateTypeAccount,
		EventType:     EventTypeTransactionAppended,
		Payload:       payload,
		CreatedAt:     tx.CreatedAt,
	}
}

// NewIntentEvent describes a payment intent lifecycle change.
func NewIntentEvent(id, eventType string, intent *PaymentIntent, at time.Time) *OutboxEvent {
	payload := map[string]any{
		"intent_id":          intent.ID,
		"external_reference": intent.ExternalReference,
		"status":             string(intent.Status),
		"amount":             intent.Amount.String(),
		"owner_id":           intent.OwnerID,
		"owner_kind":         string(intent.OwnerKind),
	}
	if len(intent.TransactionIDs) > 0 {
		payload["transaction_ids"] = intent.TransactionIDs
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   intent.ID,
		AggregateType: AggregateTypeIntent,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}

// NewSplitConfigEvent describes a created, updated or deleted configuration.
func NewSplitConfigEvent(id, change string, cfg *SplitConfiguration, at time.Time) *OutboxEvent {
	shares := make([]map[string]any, 0, len(cfg.Shares))
	for _, s := range cfg.Shares {
		shares = append(shares, map[string]any{
			"recipient_kind": string(s.RecipientKind),
			"percentage":     s.Percentage.String(),
		})
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   cfg.ID,
		AggregateType: AggregateTypeSplitConfig,
		EventType:     EventTypeSplitConfigChanged,
		Payload: map[string]any{
			"change":           change,
			"service_category": cfg.ServiceCategory,
			"severity_tier":    cfg.SeverityTier,
			"shares":           shares,
		},
		CreatedAt: at,
	}
}

// NewAccountDeactivatedEvent describes an account closed for debits.
func NewAccountDeactivatedEvent(id string, account *Account) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   account.ID,
		AggregateType: AggregateTypeAccount,
		EventType:     EventTypeAccountDeactivated,
		Payload: map[string]any{
			"account_id": account.ID,
			"owner_id":   account.OwnerID,
			"owner_kind": string(account.OwnerKind),
			"balance":    account.Balance.String(),
		},
		CreatedAt: account.UpdatedAt,
	}
}
