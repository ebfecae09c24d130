package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntentStatus is the lifecycle state of a payment intent.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusConfirmed IntentStatus = "confirmed"
	IntentStatusExpired   IntentStatus = "expired"
	IntentStatusCancelled IntentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s IntentStatus) IsTerminal() bool {
	return s != IntentStatusPending
}

// IntentRecipient is one account funded by an intent.
type IntentRecipient struct {
	Kind      RecipientKind `json:"kind"`
	AccountID string        `json:"account_id"`
}

// PaymentIntent tracks one external payment request.
type PaymentIntent struct {
	CreatedAt         time.Time
	ExpiresAt         time.Time
	ConfirmedAt       *time.Time
	ClosedAt          *time.Time
	Proof             map[string]any
	ID                string
	ExternalReference string
	OwnerID           string
	OwnerKind         OwnerKind
	PackageID         string
	ServiceCategory   string
	SeverityTier      string
	Description       string
	Status            IntentStatus
	Recipients        []IntentRecipient
	TransactionIDs    []string
	Amount            decimal.Decimal
	Credits           decimal.Decimal
}

// Validate checks creation invariants.
func (p *PaymentIntent) Validate(now time.Time) error {
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if err := ValidateAmount(p.Credits); err != nil {
		return err
	}
	if len(p.Recipients) == 0 {
		return ErrNoTargetAccount
	}
	for _, r := range p.Recipients {
		if r.AccountID == "" {
			return ErrNoTargetAccount
		}
	}
	if !p.ExpiresAt.After(now) {
		return ErrExpiryNotInFuture
	}
	return nil
}

// IsSplit reports whether the payment is divided among several recipients.
func (p *PaymentIntent) IsSplit() bool {
	return len(p.Recipients) > 1
}

// IsOverdue reports whether the deadline plus grace has passed at now.
func (p *PaymentIntent) IsOverdue(now time.Time, grace time.Duration) bool {
	return now.After(p.ExpiresAt.Add(grace))
}

// Resolver maps the intent's recipient kinds to account IDs.
func (p *PaymentIntent) Resolver() RecipientResolver {
	m := make(map[RecipientKind]string, len(p.Recipients))
	for _, r := range p.Recipients {
		m[r.Kind] = r.AccountID
	}
	return MapResolver(m)
}

// Confirm moves a pending intent to confirmed.
func (p *PaymentIntent) Confirm(now time.Time, proof map[string]any, transactionIDs []string) error {
	if err := p.transition(IntentStatusConfirmed); err != nil {
		return err
	}
	p.ConfirmedAt = &now
	p.ClosedAt = &now
	p.Proof = proof
	p.TransactionIDs = transactionIDs
	return nil
}

// Expire moves a pending intent to expired.
func (p *PaymentIntent) Expire(now time.Time) error {
	if err := p.transition(IntentStatusExpired); err != nil {
		return err
	}
	p.ClosedAt = &now
	return nil
}

// Cancel moves a pending intent to cancelled.
func (p *PaymentIntent) Cancel(now time.Time) error {
	if err := p.transition(IntentStatusCancelled); err != nil {
		return err
	}
	p.ClosedAt = &now
	return nil
}

func (p *PaymentIntent) transition(to IntentStatus) error {
	if p.Status.IsTerminal() {
		return &IntentTerminalError{IntentID: p.ID, Status: p.Status, Target: to}
	}
	p.Status = to
	return nil
}
