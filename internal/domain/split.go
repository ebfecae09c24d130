package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecipientKind names a stakeholder role in a split.
type RecipientKind string

const (
	RecipientPlatform RecipientKind = "platform"
	RecipientPartner  RecipientKind = "partner"
	RecipientReseller RecipientKind = "reseller"
	RecipientClient   RecipientKind = "client"
)

var validRecipientKinds = map[RecipientKind]bool{
	RecipientPlatform: true,
	RecipientPartner:  true,
	RecipientReseller: true,
	RecipientClient:   true,
}

// IsValid reports whether k is a known recipient kind.
func (k RecipientKind) IsValid() bool {
	return validRecipientKinds[k]
}

var hundred = decimal.NewFromInt(100)

// SplitShare is one recipient's percentage of a payment.
type SplitShare struct {
	RecipientKind RecipientKind   `json:"recipient_kind"`
	Percentage    decimal.Decimal `json:"percentage"`
}

// SplitConfiguration divides payments of one service category (and
// optionally one severity tier) among recipients. Share order matters:
// the last share absorbs the rounding remainder.
type SplitConfiguration struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ID              string
	ServiceCategory string
	SeverityTier    string
	Shares          []SplitShare
}

// Validate checks that percentages sum to exactly 100.
func (c *SplitConfiguration) Validate() error {
	if strings.TrimSpace(c.ServiceCategory) == "" {
		return c.invalid("service category is required")
	}
	if len(c.Shares) == 0 {
		return c.invalid("at least one share is required")
	}

	seen := make(map[RecipientKind]bool, len(c.Shares))
	sum := decimal.Zero

	for _, s := range c.Shares {
		if !s.RecipientKind.IsValid() {
			return c.invalid(fmt.Sprintf("unknown recipient kind %q", s.RecipientKind))
		}
		if seen[s.RecipientKind] {
			return c.invalid(fmt.Sprintf("recipient kind %q listed twice", s.RecipientKind))
		}
		seen[s.RecipientKind] = true

		if !s.Percentage.IsPositive() || s.Percentage.GreaterThan(hundred) {
			return c.invalid(fmt.Sprintf("percentage %s for %s out of range", s.Percentage, s.RecipientKind))
		}
		if !s.Percentage.Equal(s.Percentage.Round(2)) {
			return c.invalid(fmt.Sprintf("percentage %s for %s has more than two decimals", s.Percentage, s.RecipientKind))
		}
		sum = sum.Add(s.Percentage)
	}

	if !sum.Equal(hundred) {
		return c.invalid(fmt.Sprintf("percentages sum to %s, want 100", sum))
	}

	return nil
}

func (c *SplitConfiguration) invalid(reason string) error {
	return &InvalidSplitConfigurationError{
		ServiceCategory: c.ServiceCategory,
		SeverityTier:    c.SeverityTier,
		Reason:          reason,
	}
}

// SplitAllocation is the computed share of one recipient.
type SplitAllocation struct {
	RecipientKind RecipientKind
	AccountID     string
	Percentage    decimal.Decimal
	Amount        decimal.Decimal
}

// RecipientResolver finds the account receiving a recipient kind's share.
type RecipientResolver interface {
	Resolve(kind RecipientKind) (string, bool)
}

// MapResolver resolves recipients from a fixed map.
type MapResolver map[RecipientKind]string

// Resolve implements RecipientResolver.
func (m MapResolver) Resolve(kind RecipientKind) (string, bool) {
	id, ok := m[kind]
	return id, ok && id != ""
}

// ComputeAllocations divides total according to cfg. Every share but the
// last is rounded half-to-even to the currency unit; the last receives
// total minus the others, so the amounts always sum to total.
func ComputeAllocations(total decimal.Decimal, cfg *SplitConfiguration, resolver RecipientResolver) ([]SplitAllocation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateAmount(total); err != nil {
		return nil, err
	}

	allocations := make([]SplitAllocation, 0, len(cfg.Shares))
	allocated := decimal.Zero
	last := len(cfg.Shares) - 1

	for i, share := range cfg.Shares {
		accountID, ok := resolver.Resolve(share.RecipientKind)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedRecipient, share.RecipientKind)
		}

		var amount decimal.Decimal
		if i == last {
			amount = total.Sub(allocated)
		} else {
			amount = total.Mul(share.Percentage).Div(hundred).RoundBank(CurrencyScale)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: %s across %d shares leaves %s for %s",
				ErrAmountTooSmallToSplit, total, len(cfg.Shares), amount, share.RecipientKind)
		}
		allocated = allocated.Add(amount)

		allocations = append(allocations, SplitAllocation{
			RecipientKind: share.RecipientKind,
			AccountID:     accountID,
			Percentage:    share.Percentage,
			Amount:        amount,
		})
	}

	return allocations, nil
}
