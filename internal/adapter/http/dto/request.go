package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// CreateIntentRequest represents a request to open a purchase intent.
type CreateIntentRequest struct {
	OwnerKind         domain.OwnerKind `json:"owner_kind"`
	OwnerID           string           `json:"owner_id"`
	PackageID         string           `json:"package_id,omitempty"`
	ServiceCategory   string           `json:"service_category,omitempty"`
	SeverityTier      string           `json:"severity_tier,omitempty"`
	PartnerID         string           `json:"partner_id,omitempty"`
	ExternalReference string           `json:"external_reference,omitempty"`
	Description       string           `json:"description,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	TTLSeconds        int64            `json:"ttl_seconds,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateIntentRequest) ToUseCaseInput() usecase.CreatePurchaseIntentInput {
	return usecase.CreatePurchaseIntentInput{
		OwnerKind:         r.OwnerKind,
		OwnerID:           r.OwnerID,
		PackageID:         r.PackageID,
		ServiceCategory:   r.ServiceCategory,
		SeverityTier:      r.SeverityTier,
		PartnerID:         r.PartnerID,
		ExternalReference: r.ExternalReference,
		Description:       r.Description,
		Amount:            r.Amount,
		TTL:               time.Duration(r.TTLSeconds) * time.Second,
	}
}

// UsageRequest debits credits for a consumed service. Amount is positive;
// the ledger records it as a negative entry.
type UsageRequest struct {
	AccountID        string          `json:"account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description,omitempty"`
	ServiceReference string          `json:"service_reference,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UsageRequest) ToUseCaseInput() usecase.AppendInput {
	in := usecase.AppendInput{
		AccountID:   r.AccountID,
		Kind:        domain.KindUsage,
		Description: r.Description,
		Amount:      r.Amount.Neg(),
	}
	if r.ServiceReference != "" {
		ref := r.ServiceReference
		in.ServiceReference = &ref
	}
	return in
}

// RefundRequest returns credits to an account.
type RefundRequest struct {
	AccountID        string          `json:"account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description,omitempty"`
	ServiceReference string          `json:"service_reference,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RefundRequest) ToUseCaseInput() usecase.AppendInput {
	in := usecase.AppendInput{
		AccountID:   r.AccountID,
		Kind:        domain.KindRefund,
		Description: r.Description,
		Amount:      r.Amount,
	}
	if r.ServiceReference != "" {
		ref := r.ServiceReference
		in.ServiceReference = &ref
	}
	return in
}

// TransferRequest moves credits between two accounts.
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Description:   r.Description,
		Amount:        r.Amount,
	}
}

// SplitShareRequest is one recipient's percentage.
type SplitShareRequest struct {
	RecipientKind domain.RecipientKind `json:"recipient_kind"`
	Percentage    decimal.Decimal      `json:"percentage"`
}

// SplitConfigRequest creates or replaces a split configuration.
type SplitConfigRequest struct {
	ServiceCategory string              `json:"service_category"`
	SeverityTier    string              `json:"severity_tier,omitempty"`
	Shares          []SplitShareRequest `json:"shares"`
}

// ToUseCaseInput converts to use case input.
func (r *SplitConfigRequest) ToUseCaseInput() usecase.SplitConfigInput {
	shares := make([]domain.SplitShare, len(r.Shares))
	for i, s := range r.Shares {
		shares[i] = domain.SplitShare{RecipientKind: s.RecipientKind, Percentage: s.Percentage}
	}
	return usecase.SplitConfigInput{
		ServiceCategory: r.ServiceCategory,
		SeverityTier:    r.SeverityTier,
		Shares:          shares,
	}
}

// TokenRequest exchanges operator credentials for a JWT.
type TokenRequest struct {
	OperatorID string `json:"operator_id"`
	Password   string `json:"password"`
}
