package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidOwnerID     = errors.New("invalid owner ID")
	ErrInvalidOwnerKind   = errors.New("invalid owner kind")
	ErrInvalidDescription = errors.New("invalid description")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall     = errors.New("amount below minimum allowed")
	ErrAmountScale        = errors.New("amount has more decimals than the currency allows")
	ErrProofTooLarge      = errors.New("proof payload size exceeds limit")
)

// Validation constants
const (
	// CurrencyScale is the number of decimals of the currency's minimum unit.
	CurrencyScale = 2

	MaxOwnerIDLength     = 128
	MaxDescriptionLength = 500
	MaxProofSize         = 16384         // 16KB
	MaxAmount            = "10000000000" // 10 billion
	MinAmount            = "0.01"
)

var (
	minAmount = decimal.RequireFromString(MinAmount)
	maxAmount = decimal.RequireFromString(MaxAmount)
)

// ValidateAmount validates a positive money amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	if !amount.Equal(amount.Truncate(CurrencyScale)) {
		return fmt.Errorf("%w: %s", ErrAmountScale, amount)
	}

	return nil
}

// ValidateOwner validates an owner kind and ID pair.
func ValidateOwner(kind OwnerKind, ownerID string) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidOwnerKind, kind)
	}

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return fmt.Errorf("%w: owner ID cannot be empty", ErrInvalidOwnerID)
	}

	if len(ownerID) > MaxOwnerIDLength {
		return fmt.Errorf("%w: owner ID exceeds %d characters", ErrInvalidOwnerID, MaxOwnerIDLength)
	}

	if strings.ContainsAny(ownerID, ": \t\n") {
		return fmt.Errorf("%w: owner ID contains forbidden characters", ErrInvalidOwnerID)
	}

	return nil
}

// ValidateDescription validates a free-text transaction description.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}
	return nil
}

// ValidateProof validates the size of a gateway proof payload.
func ValidateProof(proof map[string]any) error {
	if proof == nil {
		return nil
	}

	// Estimate size (rough approximation)
	size := 0
	for k, v := range proof {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxProofSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrProofTooLarge, size, MaxProofSize)
	}

	return nil
}

// ValidatePageSize clamps a page size to sane bounds.
func ValidatePageSize(limit int) int {
	const MaxPageSize = 200
	const DefaultPageSize = 50

	if limit <= 0 {
		return DefaultPageSize
	}

	if limit > MaxPageSize {
		return MaxPageSize
	}

	return limit
}
