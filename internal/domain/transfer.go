package domain

import (
	"github.com/shopspring/decimal"
)

// Transfer moves credits between two accounts as a linked debit/credit pair.
type Transfer struct {
	ID            string
	FromAccountID string
	ToAccountID   string
	Description   string
	Amount        decimal.Decimal
}

// Validate validates transfer request.
func (t *Transfer) Validate() error {
	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}

	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}

	return ValidateDescription(t.Description)
}

// Legs builds the debit and credit transactions of the transfer.
// Balances are filled in when each leg is applied to its account.
func (t *Transfer) Legs() (debit, credit *Transaction) {
	id := t.ID
	debit = &Transaction{
		Kind:        KindTransfer,
		Amount:      t.Amount.Neg(),
		TransferID:  &id,
		Description: t.Description,
	}
	credit = &Transaction{
		Kind:        KindTransfer,
		Amount:      t.Amount,
		TransferID:  &id,
		Description: t.Description,
	}
	return debit, credit
}
