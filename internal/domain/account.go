package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OwnerKind identifies who owns an account.
type OwnerKind string

const (
	OwnerKindClient   OwnerKind = "client"
	OwnerKindCompany  OwnerKind = "company"
	OwnerKindPlatform OwnerKind = "platform"
	OwnerKindPartner  OwnerKind = "partner"
)

var validOwnerKinds = map[OwnerKind]bool{
	OwnerKindClient:   true,
	OwnerKindCompany:  true,
	OwnerKindPlatform: true,
	OwnerKindPartner:  true,
}

// IsValid reports whether k is a known owner kind.
func (k OwnerKind) IsValid() bool {
	return validOwnerKinds[k]
}

// AccountID returns the deterministic account ID for an owner.
// Accounts are created lazily, so callers address them by owner.
func AccountID(kind OwnerKind, ownerID string) string {
	return string(kind) + ":" + ownerID
}

// ParseAccountID splits an account ID into its owner kind and owner ID.
func ParseAccountID(id string) (OwnerKind, string, error) {
	kind, ownerID, ok := strings.Cut(id, ":")
	if !ok || ownerID == "" || !OwnerKind(kind).IsValid() {
		return "", "", ErrInvalidAccountID
	}
	return OwnerKind(kind), ownerID, nil
}

// Account holds the materialized balance of one owner.
// Balance is only ever changed through appended transactions.
type Account struct {
	ID        string
	OwnerID   string
	OwnerKind OwnerKind
	Balance   decimal.Decimal
	Version   int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount builds an empty, active account for an owner.
func NewAccount(kind OwnerKind, ownerID string, now time.Time) *Account {
	return &Account{
		ID:        AccountID(kind, ownerID),
		OwnerID:   ownerID,
		OwnerKind: kind,
		Balance:   decimal.Zero,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateDebit checks the account can absorb a negative amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if !a.Active {
		return ErrAccountInactive
	}
	if a.Balance.Add(amount).IsNegative() {
		return &InsufficientBalanceError{
			AccountID: a.ID,
			Available: a.Balance,
			Requested: amount.Neg(),
		}
	}
	return nil
}

// Apply builds the next transaction in the account's chain and advances
// the in-memory balance and version to match it.
func (a *Account) Apply(tx *Transaction) {
	tx.AccountID = a.ID
	tx.BalanceBefore = a.Balance
	tx.BalanceAfter = a.Balance.Add(tx.Amount)
	tx.Sequence = a.Version + 1

	a.Balance = tx.BalanceAfter
	a.Version = tx.Sequence
	a.UpdatedAt = tx.CreatedAt
}
