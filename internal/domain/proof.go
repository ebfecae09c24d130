package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProofStatus is the gateway's normalized view of a payment.
type ProofStatus string

const (
	ProofStatusPaid      ProofStatus = "paid"
	ProofStatusPending   ProofStatus = "pending"
	ProofStatusFailed    ProofStatus = "failed"
	ProofStatusCancelled ProofStatus = "cancelled"
)

// PaymentProof is a gateway confirmation after boundary normalization.
// Only ExternalReference and Status are mandatory; Amount is checked
// against the intent when present.
type PaymentProof struct {
	PaidAt               *time.Time
	Raw                  map[string]any
	Amount               *decimal.Decimal
	ExternalReference    string
	GatewayTransactionID string
	Status               ProofStatus
}

// Record flattens the proof into the payload stored on the intent.
func (p *PaymentProof) Record() map[string]any {
	rec := map[string]any{
		"external_reference": p.ExternalReference,
		"status":             string(p.Status),
	}
	if p.GatewayTransactionID != "" {
		rec["gateway_transaction_id"] = p.GatewayTransactionID
	}
	if p.Amount != nil {
		rec["amount"] = p.Amount.String()
	}
	if p.PaidAt != nil {
		rec["paid_at"] = p.PaidAt.UTC().Format(time.RFC3339)
	}
	if p.Raw != nil {
		rec["raw"] = p.Raw
	}
	return rec
}

// CheckAmount rejects a proof whose amount differs from expected.
func (p *PaymentProof) CheckAmount(expected decimal.Decimal) error {
	if p.Amount != nil && !p.Amount.Equal(expected) {
		return ErrProofAmountMismatch
	}
	return nil
}
