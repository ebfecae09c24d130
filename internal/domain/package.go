package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CreditPackage is a catalog entry a buyer can pick instead of a raw amount.
type CreditPackage struct {
	ID      string
	Name    string
	Price   decimal.Decimal
	Credits decimal.Decimal
}

// ParseCreditPackages reads "id:name:price:credits" entries.
func ParseCreditPackages(entries []string) ([]CreditPackage, error) {
	packages := make([]CreditPackage, 0, len(entries))
	seen := make(map[string]bool)

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("credit package %q: want id:name:price:credits", entry)
		}

		price, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("credit package %q: price: %w", parts[0], err)
		}
		credits, err := decimal.NewFromString(parts[3])
		if err != nil {
			return nil, fmt.Errorf("credit package %q: credits: %w", parts[0], err)
		}
		if err := ValidateAmount(price); err != nil {
			return nil, fmt.Errorf("credit package %q: %w", parts[0], err)
		}
		if err := ValidateAmount(credits); err != nil {
			return nil, fmt.Errorf("credit package %q: %w", parts[0], err)
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("credit package %q declared twice", parts[0])
		}
		seen[parts[0]] = true

		packages = append(packages, CreditPackage{
			ID:      parts[0],
			Name:    parts[1],
			Price:   price,
			Credits: credits,
		})
	}

	return packages, nil
}
