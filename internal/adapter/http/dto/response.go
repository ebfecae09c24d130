package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string          `json:"id"`
	OwnerKind string          `json:"owner_kind"`
	OwnerID   string          `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		OwnerKind: string(a.OwnerKind),
		OwnerID:   a.OwnerID,
		Balance:   a.Balance,
		Version:   a.Version,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// BalanceResponse reports one balance.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	At        *time.Time      `json:"at,omitempty"`
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	Sequence         int64           `json:"sequence"`
	Kind             string          `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	BalanceBefore    decimal.Decimal `json:"balance_before"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	Description      string          `json:"description,omitempty"`
	PaymentIntentID  *string         `json:"payment_intent_id,omitempty"`
	ServiceReference *string         `json:"service_reference,omitempty"`
	TransferID       *string         `json:"transfer_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:               t.ID,
		AccountID:        t.AccountID,
		Sequence:         t.Sequence,
		Kind:             string(t.Kind),
		Amount:           t.Amount,
		BalanceBefore:    t.BalanceBefore,
		BalanceAfter:     t.BalanceAfter,
		Description:      t.Description,
		PaymentIntentID:  t.PaymentIntentID,
		ServiceReference: t.ServiceReference,
		TransferID:       t.TransferID,
		CreatedAt:        t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txs []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// TransactionPageResponse is one page of history.
type TransactionPageResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	NextCursor   string                 `json:"next_cursor,omitempty"`
}

// TransactionPageFromUseCase converts a use case page to response.
func TransactionPageFromUseCase(p *usecase.TransactionPage) *TransactionPageResponse {
	return &TransactionPageResponse{
		Transactions: TransactionsFromDomain(p.Transactions),
		NextCursor:   p.NextCursor,
	}
}

// IntentRecipientResponse is one account funded by an intent.
type IntentRecipientResponse struct {
	Kind      string `json:"kind"`
	AccountID string `json:"account_id"`
}

// IntentResponse represents a payment intent in API responses.
type IntentResponse struct {
	ID                string                    `json:"id"`
	ExternalReference string                    `json:"external_reference"`
	OwnerKind         string                    `json:"owner_kind"`
	OwnerID           string                    `json:"owner_id"`
	PackageID         string                    `json:"package_id,omitempty"`
	ServiceCategory   string                    `json:"service_category,omitempty"`
	SeverityTier      string                    `json:"severity_tier,omitempty"`
	Description       string                    `json:"description,omitempty"`
	Status            string                    `json:"status"`
	Amount            decimal.Decimal           `json:"amount"`
	Credits           decimal.Decimal           `json:"credits"`
	Recipients        []IntentRecipientResponse `json:"recipients"`
	TransactionIDs    []string                  `json:"transaction_ids,omitempty"`
	Proof             map[string]any            `json:"proof,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	ExpiresAt         time.Time                 `json:"expires_at"`
	ConfirmedAt       *time.Time                `json:"confirmed_at,omitempty"`
	ClosedAt          *time.Time                `json:"closed_at,omitempty"`
}

// IntentFromDomain converts a domain intent to response.
func IntentFromDomain(p *domain.PaymentIntent) *IntentResponse {
	recipients := make([]IntentRecipientResponse, len(p.Recipients))
	for i, r := range p.Recipients {
		recipients[i] = IntentRecipientResponse{Kind: string(r.Kind), AccountID: r.AccountID}
	}

	return &IntentResponse{
		ID:                p.ID,
		ExternalReference: p.ExternalReference,
		OwnerKind:         string(p.OwnerKind),
		OwnerID:           p.OwnerID,
		PackageID:         p.PackageID,
		ServiceCategory:   p.ServiceCategory,
		SeverityTier:      p.SeverityTier,
		Description:       p.Description,
		Status:            string(p.Status),
		Amount:            p.Amount,
		Credits:           p.Credits,
		Recipients:        recipients,
		TransactionIDs:    p.TransactionIDs,
		Proof:             p.Proof,
		CreatedAt:         p.CreatedAt,
		ExpiresAt:         p.ExpiresAt,
		ConfirmedAt:       p.ConfirmedAt,
		ClosedAt:          p.ClosedAt,
	}
}

// IntentsFromDomain converts domain intents to responses.
func IntentsFromDomain(intents []*domain.PaymentIntent) []*IntentResponse {
	result := make([]*IntentResponse, len(intents))
	for i, p := range intents {
		result[i] = IntentFromDomain(p)
	}
	return result
}

// EventResponse is one recorded lifecycle event.
type EventResponse struct {
	ID          string         `json:"id"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

// EventsFromDomain converts outbox events to responses.
func EventsFromDomain(events []*domain.OutboxEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = &EventResponse{
			ID:          e.ID,
			EventType:   e.EventType,
			Payload:     e.Payload,
			CreatedAt:   e.CreatedAt,
			PublishedAt: e.PublishedAt,
		}
	}
	return result
}

// ReconciliationResponse is the outcome of a reconcile call.
type ReconciliationResponse struct {
	Intent           *IntentResponse        `json:"intent"`
	Transactions     []*TransactionResponse `json:"transactions"`
	AlreadyProcessed bool                   `json:"already_processed"`
}

// ReconciliationFromUseCase converts a reconciliation result to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		Intent:           IntentFromDomain(r.Intent),
		Transactions:     TransactionsFromDomain(r.Transactions),
		AlreadyProcessed: r.AlreadyProcessed,
	}
}

// ProofIgnoredResponse is returned for a proof that does not confirm payment.
type ProofIgnoredResponse struct {
	Status      string          `json:"status"`
	ProofStatus string          `json:"proof_status"`
	Intent      *IntentResponse `json:"intent,omitempty"`
}

// SplitShareResponse is one recipient's percentage.
type SplitShareResponse struct {
	RecipientKind string          `json:"recipient_kind"`
	Percentage    decimal.Decimal `json:"percentage"`
}

// SplitConfigResponse represents a split configuration in API responses.
type SplitConfigResponse struct {
	ID              string               `json:"id"`
	ServiceCategory string               `json:"service_category"`
	SeverityTier    string               `json:"severity_tier,omitempty"`
	Shares          []SplitShareResponse `json:"shares"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// SplitConfigFromDomain converts a domain configuration to response.
func SplitConfigFromDomain(c *domain.SplitConfiguration) *SplitConfigResponse {
	shares := make([]SplitShareResponse, len(c.Shares))
	for i, s := range c.Shares {
		shares[i] = SplitShareResponse{RecipientKind: string(s.RecipientKind), Percentage: s.Percentage}
	}
	return &SplitConfigResponse{
		ID:              c.ID,
		ServiceCategory: c.ServiceCategory,
		SeverityTier:    c.SeverityTier,
		Shares:          shares,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// SplitConfigsFromDomain converts domain configurations to responses.
func SplitConfigsFromDomain(cfgs []*domain.SplitConfiguration) []*SplitConfigResponse {
	result := make([]*SplitConfigResponse, len(cfgs))
	for i, c := range cfgs {
		result[i] = SplitConfigFromDomain(c)
	}
	return result
}

// SplitValidationResponse reports whether every stored configuration is usable.
type SplitValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// PackageResponse represents a credit package.
type PackageResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Credits decimal.Decimal `json:"credits"`
}

// PackagesFromDomain converts the package catalog to responses.
func PackagesFromDomain(pkgs []domain.CreditPackage) []*PackageResponse {
	result := make([]*PackageResponse, len(pkgs))
	for i, p := range pkgs {
		result[i] = &PackageResponse{ID: p.ID, Name: p.Name, Price: p.Price, Credits: p.Credits}
	}
	return result
}

// ConsistencyResponse reports one account's chain check.
type ConsistencyResponse struct {
	AccountID       string          `json:"account_id"`
	Consistent      bool            `json:"consistent"`
	Problem         string          `json:"problem,omitempty"`
	RecordedBalance decimal.Decimal `json:"recorded_balance"`
	ChainBalance    decimal.Decimal `json:"chain_balance"`
	Transactions    int             `json:"transactions"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// ConsistencyFromUseCase converts a consistency report to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		AccountID:       r.AccountID,
		Consistent:      r.Consistent,
		Problem:         r.Problem,
		RecordedBalance: r.RecordedBalance,
		ChainBalance:    r.ChainBalance,
		Transactions:    r.Transactions,
		CheckedAt:       r.CheckedAt,
	}
}

// LedgerConsistencyResponse summarizes a check across every account.
type LedgerConsistencyResponse struct {
	Consistent   bool                   `json:"consistent"`
	Accounts     int                    `json:"accounts"`
	Inconsistent []*ConsistencyResponse `json:"inconsistent,omitempty"`
	CheckedAt    time.Time              `json:"checked_at"`
}

// LedgerConsistencyFromUseCase converts a ledger-wide check to response.
func LedgerConsistencyFromUseCase(c *usecase.LedgerConsistency) *LedgerConsistencyResponse {
	resp := &LedgerConsistencyResponse{
		Consistent: c.Consistent,
		Accounts:   c.Accounts,
		CheckedAt:  c.CheckedAt,
	}
	for _, r := range c.Inconsistent {
		resp.Inconsistent = append(resp.Inconsistent, ConsistencyFromUseCase(r))
	}
	return resp
}

// TokenResponse carries an operator JWT.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Operator  string    `json:"operator_id"`
	Role      string    `json:"role"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
