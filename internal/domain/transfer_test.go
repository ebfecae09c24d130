package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransfer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		t       Transfer
		wantErr error
	}{
		{
			name: "valid",
			t:    Transfer{FromAccountID: "client:a", ToAccountID: "client:b", Amount: decimal.NewFromInt(10)},
		},
		{
			name:    "same account",
			t:       Transfer{FromAccountID: "client:a", ToAccountID: "client:a", Amount: decimal.NewFromInt(10)},
			wantErr: ErrSameAccount,
		},
		{
			name:    "zero amount",
			t:       Transfer{FromAccountID: "client:a", ToAccountID: "client:b", Amount: decimal.Zero},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			t:       Transfer{FromAccountID: "client:a", ToAccountID: "client:b", Amount: decimal.NewFromInt(-5)},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "description too long",
			t: Transfer{
				FromAccountID: "client:a",
				ToAccountID:   "client:b",
				Amount:        decimal.NewFromInt(1),
				Description:   strings.Repeat("x", MaxDescriptionLength+1),
			},
			wantErr: ErrInvalidDescription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.t.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransfer_Legs(t *testing.T) {
	tr := Transfer{ID: "tr-1", FromAccountID: "client:a", ToAccountID: "client:b", Amount: decimal.NewFromInt(25)}

	debit, credit := tr.Legs()

	if !debit.Amount.Equal(decimal.NewFromInt(-25)) || !credit.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("legs = %s / %s", debit.Amount, credit.Amount)
	}
	if *debit.TransferID != "tr-1" || *credit.TransferID != "tr-1" {
		t.Fatal("legs must share the transfer ID")
	}
	if debit.Kind != KindTransfer || credit.Kind != KindTransfer {
		t.Fatal("legs must be transfer kind")
	}
	if !debit.Amount.Add(credit.Amount).IsZero() {
		t.Fatal("legs must net to zero")
	}
}
