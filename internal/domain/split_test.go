package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func threeWay(p1, p2, p3 string) *SplitConfiguration {
	return &SplitConfiguration{
		ServiceCategory: "consultation",
		Shares: []SplitShare{
			{RecipientKind: RecipientPartner, Percentage: d(p1)},
			{RecipientKind: RecipientReseller, Percentage: d(p2)},
			{RecipientKind: RecipientPlatform, Percentage: d(p3)},
		},
	}
}

var testResolver = MapResolver{
	RecipientPlatform: "platform:main",
	RecipientPartner:  "partner:p1",
	RecipientReseller: "company:acme",
	RecipientClient:   "client:c1",
}

func sumAllocations(allocs []SplitAllocation) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.Amount)
	}
	return sum
}

func TestSplitConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *SplitConfiguration
		wantOK bool
	}{
		{name: "sums to 100", cfg: threeWay("30", "20", "50"), wantOK: true},
		{name: "fractional sums to 100", cfg: threeWay("33.33", "33.33", "33.34"), wantOK: true},
		{name: "sums to 99.99", cfg: threeWay("33.33", "33.33", "33.33")},
		{name: "sums to 100.01", cfg: threeWay("33.33", "33.34", "33.34")},
		{name: "zero share", cfg: threeWay("0", "50", "50")},
		{name: "three decimals", cfg: threeWay("33.333", "33.333", "33.334")},
		{name: "missing category", cfg: &SplitConfiguration{Shares: []SplitShare{{RecipientKind: RecipientPlatform, Percentage: d("100")}}}},
		{name: "no shares", cfg: &SplitConfiguration{ServiceCategory: "x"}},
		{
			name: "duplicate kind",
			cfg: &SplitConfiguration{ServiceCategory: "x", Shares: []SplitShare{
				{RecipientKind: RecipientPlatform, Percentage: d("50")},
				{RecipientKind: RecipientPlatform, Percentage: d("50")},
			}},
		},
		{
			name: "unknown kind",
			cfg: &SplitConfiguration{ServiceCategory: "x", Shares: []SplitShare{
				{RecipientKind: RecipientKind("investor"), Percentage: d("100")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantOK && !errors.Is(err, ErrInvalidSplitConfiguration) {
				t.Fatalf("expected ErrInvalidSplitConfiguration, got %v", err)
			}
		})
	}
}

func TestComputeAllocations_ThirtyTwentyFifty(t *testing.T) {
	cfg := &SplitConfiguration{
		ServiceCategory: "consultation",
		Shares: []SplitShare{
			{RecipientKind: RecipientPlatform, Percentage: d("30")},
			{RecipientKind: RecipientPartner, Percentage: d("20")},
			{RecipientKind: RecipientReseller, Percentage: d("50")},
		},
	}

	allocs, err := ComputeAllocations(d("100.00"), cfg, testResolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"platform:main": "30",
		"partner:p1":    "20",
		"company:acme":  "50",
	}
	if len(allocs) != 3 {
		t.Fatalf("got %d allocations, want 3", len(allocs))
	}
	for _, a := range allocs {
		if !a.Amount.Equal(d(want[a.AccountID])) {
			t.Errorf("%s got %s, want %s", a.AccountID, a.Amount, want[a.AccountID])
		}
	}
	if !sumAllocations(allocs).Equal(d("100")) {
		t.Fatalf("sum = %s", sumAllocations(allocs))
	}
}

func TestComputeAllocations_RemainderGoesToLast(t *testing.T) {
	allocs, err := ComputeAllocations(d("100.01"), threeWay("33.33", "33.33", "33.34"), testResolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !allocs[0].Amount.Equal(d("33.33")) || !allocs[1].Amount.Equal(d("33.33")) {
		t.Fatalf("rounded shares = %s, %s", allocs[0].Amount, allocs[1].Amount)
	}
	if !allocs[2].Amount.Equal(d("33.35")) {
		t.Fatalf("last share = %s, want 33.35", allocs[2].Amount)
	}
	if !sumAllocations(allocs).Equal(d("100.01")) {
		t.Fatalf("sum = %s, want 100.01", sumAllocations(allocs))
	}
}

func TestComputeAllocations_HalfToEven(t *testing.T) {
	// 0.25 * 50% = 0.125 rounds to 0.12, not 0.13.
	cfg := &SplitConfiguration{
		ServiceCategory: "x",
		Shares: []SplitShare{
			{RecipientKind: RecipientPartner, Percentage: d("50")},
			{RecipientKind: RecipientPlatform, Percentage: d("50")},
		},
	}

	allocs, err := ComputeAllocations(d("0.25"), cfg, testResolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allocs[0].Amount.Equal(d("0.12")) || !allocs[1].Amount.Equal(d("0.13")) {
		t.Fatalf("got %s / %s, want 0.12 / 0.13", allocs[0].Amount, allocs[1].Amount)
	}
}

func TestComputeAllocations_SumsExactly(t *testing.T) {
	configs := []*SplitConfiguration{
		threeWay("33.33", "33.33", "33.34"),
		threeWay("12.5", "37.5", "50"),
		threeWay("0.01", "0.01", "99.98"),
		threeWay("99.98", "0.01", "0.01"),
	}

	for _, cfg := range configs {
		for cents := int64(1); cents <= 2000; cents += 7 {
			total := decimal.New(cents, -CurrencyScale)
			allocs, err := ComputeAllocations(total, cfg, testResolver)
			if err != nil {
				// Tiny totals can leave the last share negative.
				if errors.Is(err, ErrAmountTooSmallToSplit) {
					continue
				}
				t.Fatalf("total %s: %v", total, err)
			}
			if !sumAllocations(allocs).Equal(total) {
				t.Fatalf("total %s: allocations sum to %s", total, sumAllocations(allocs))
			}
			for _, a := range allocs {
				if a.Amount.IsNegative() {
					t.Fatalf("total %s: negative allocation %s", total, a.Amount)
				}
				if !a.Amount.Equal(a.Amount.Round(CurrencyScale)) {
					t.Fatalf("total %s: allocation %s not in currency units", total, a.Amount)
				}
			}
		}
	}
}

func TestComputeAllocations_Errors(t *testing.T) {
	t.Run("invalid configuration", func(t *testing.T) {
		_, err := ComputeAllocations(d("10"), threeWay("30", "30", "30"), testResolver)
		if !errors.Is(err, ErrInvalidSplitConfiguration) {
			t.Fatalf("expected ErrInvalidSplitConfiguration, got %v", err)
		}
	})

	t.Run("unresolved recipient", func(t *testing.T) {
		resolver := MapResolver{RecipientPlatform: "platform:main"}
		_, err := ComputeAllocations(d("10"), threeWay("30", "20", "50"), resolver)
		if !errors.Is(err, ErrUnresolvedRecipient) {
			t.Fatalf("expected ErrUnresolvedRecipient, got %v", err)
		}
	})

	t.Run("total too small to split", func(t *testing.T) {
		cfg := &SplitConfiguration{
			ServiceCategory: "consultation",
			Shares: []SplitShare{
				{RecipientKind: RecipientPartner, Percentage: d("33")},
				{RecipientKind: RecipientReseller, Percentage: d("33")},
				{RecipientKind: RecipientClient, Percentage: d("33")},
				{RecipientKind: RecipientPlatform, Percentage: d("1")},
			},
		}

		_, err := ComputeAllocations(d("0.02"), cfg, testResolver)
		if !errors.Is(err, ErrAmountTooSmallToSplit) {
			t.Fatalf("expected ErrAmountTooSmallToSplit, got %v", err)
		}
		if errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected a split error, not a generic invalid amount: %v", err)
		}

		allocs, err := ComputeAllocations(d("1.00"), cfg, testResolver)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sumAllocations(allocs).Equal(d("1.00")) {
			t.Fatalf("allocations sum to %s", sumAllocations(allocs))
		}
	})

	t.Run("non-positive total", func(t *testing.T) {
		_, err := ComputeAllocations(decimal.Zero, threeWay("30", "20", "50"), testResolver)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func ExampleComputeAllocations() {
	cfg := &SplitConfiguration{
		ServiceCategory: "consultation",
		Shares: []SplitShare{
			{RecipientKind: RecipientPartner, Percentage: decimal.NewFromInt(20)},
			{RecipientKind: RecipientPlatform, Percentage: decimal.NewFromInt(80)},
		},
	}
	resolver := MapResolver{RecipientPartner: "partner:p1", RecipientPlatform: "platform:main"}

	allocs, _ := ComputeAllocations(decimal.RequireFromString("9.99"), cfg, resolver)
	for _, a := range allocs {
		fmt.Println(a.AccountID, a.Amount.StringFixed(2))
	}
	// Output:
	// partner:p1 2.00
	// platform:main 7.99
}
