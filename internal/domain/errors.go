package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Ledger errors
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrInvalidAccountID       = errors.New("invalid account ID")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
	ErrSameAccount            = errors.New("cannot transfer to same account")
	ErrLedgerInconsistent     = errors.New("ledger is inconsistent")

	// Split configuration errors
	ErrInvalidSplitConfiguration = errors.New("invalid split configuration")
	ErrNoSplitConfiguration      = errors.New("no split configuration")
	ErrSplitConfigurationExists  = errors.New("split configuration already exists")
	ErrUnresolvedRecipient       = errors.New("split recipient cannot be resolved")
	ErrSplitConfigurationMissing = errors.New("split configuration not found")
	ErrAmountTooSmallToSplit     = errors.New("amount too small to split")

	// Payment intent errors
	ErrIntentNotFound        = errors.New("payment intent not found")
	ErrIntentAlreadyTerminal = errors.New("payment intent already terminal")
	ErrDuplicateReference    = errors.New("external reference already used")
	ErrNoTargetAccount       = errors.New("payment intent needs at least one target account")
	ErrExpiryNotInFuture     = errors.New("expiry must be in the future")
	ErrPackageNotFound       = errors.New("credit package not found")
	ErrIntentNotDue          = errors.New("payment intent has not passed its deadline")

	// Reconciliation errors
	ErrProofAmountMismatch          = errors.New("proof amount does not match intent amount")
	ErrInvalidProof                 = errors.New("invalid payment proof")
	ErrReconciliationStorageFailure = errors.New("reconciliation storage failure")
)

// InsufficientBalanceError carries the shortfall of a rejected debit.
type InsufficientBalanceError struct {
	AccountID string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: available %s, requested %s",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// IntentTerminalError reports a transition attempted on a closed intent.
type IntentTerminalError struct {
	IntentID string
	Status   IntentStatus
	Target   IntentStatus
}

func (e *IntentTerminalError) Error() string {
	return fmt.Sprintf("payment intent %s is %s, cannot become %s", e.IntentID, e.Status, e.Target)
}

func (e *IntentTerminalError) Unwrap() error {
	return ErrIntentAlreadyTerminal
}

// InvalidSplitConfigurationError explains why a configuration was rejected.
type InvalidSplitConfigurationError struct {
	ServiceCategory string
	SeverityTier    string
	Reason          string
}

func (e *InvalidSplitConfigurationError) Error() string {
	key := e.ServiceCategory
	if e.SeverityTier != "" {
		key += "/" + e.SeverityTier
	}
	return fmt.Sprintf("invalid split configuration %q: %s", key, e.Reason)
}

func (e *InvalidSplitConfigurationError) Unwrap() error {
	return ErrInvalidSplitConfiguration
}

// ChainBreakError points at the first transaction whose balances do not link.
type ChainBreakError struct {
	Index         int
	TransactionID string
	Expected      decimal.Decimal
	Got           decimal.Decimal
}

func (e *ChainBreakError) Error() string {
	return fmt.Sprintf("balance chain broken at #%d (%s): expected %s, got %s",
		e.Index, e.TransactionID, e.Expected, e.Got)
}

func (e *ChainBreakError) Unwrap() error {
	return ErrLedgerInconsistent
}
