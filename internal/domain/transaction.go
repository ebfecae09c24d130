package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindUsage    TransactionKind = "usage"
	KindRefund   TransactionKind = "refund"
	KindTransfer TransactionKind = "transfer"
)

var validKinds = map[TransactionKind]bool{
	KindPurchase: true,
	KindUsage:    true,
	KindRefund:   true,
	KindTransfer: true,
}

// IsValid reports whether k is a known transaction kind.
func (k TransactionKind) IsValid() bool {
	return validKinds[k]
}

// Transaction is an immutable ledger entry on one account.
type Transaction struct {
	CreatedAt        time.Time
	ID               string
	AccountID        string
	Kind             TransactionKind
	Description      string
	PaymentIntentID  *string
	ServiceReference *string
	TransferID       *string
	Amount           decimal.Decimal
	BalanceBefore    decimal.Decimal
	BalanceAfter     decimal.Decimal
	Sequence         int64
}

// ValidateAmount checks the sign of the amount against the kind.
// Usage debits; purchases and refunds credit; transfer legs go either way.
func (t *Transaction) ValidateAmount() error {
	if !t.Kind.IsValid() {
		return ErrInvalidTransactionKind
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}

	switch t.Kind {
	case KindUsage:
		if t.Amount.IsPositive() {
			return ErrInvalidAmount
		}
	case KindPurchase, KindRefund:
		if t.Amount.IsNegative() {
			return ErrInvalidAmount
		}
	}

	return nil
}

// VerifyChain checks that txs, ordered oldest first, form an unbroken
// balance chain starting from zero. It returns the final balance.
func VerifyChain(txs []*Transaction) (decimal.Decimal, error) {
	balance := decimal.Zero
	for i, tx := range txs {
		if !tx.BalanceBefore.Equal(balance) {
			return balance, &ChainBreakError{Index: i, TransactionID: tx.ID, Expected: balance, Got: tx.BalanceBefore}
		}
		after := tx.BalanceBefore.Add(tx.Amount)
		if !tx.BalanceAfter.Equal(after) {
			return balance, &ChainBreakError{Index: i, TransactionID: tx.ID, Expected: after, Got: tx.BalanceAfter}
		}
		balance = tx.BalanceAfter
	}
	return balance, nil
}
