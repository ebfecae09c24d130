package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// AccountService defines the read side needed by AccountHandler.
type AccountService interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	GetOwnerBalance(ctx context.Context, kind domain.OwnerKind, ownerID string) (decimal.Decimal, error)
	ListAccounts(ctx context.Context, kind domain.OwnerKind, limit, offset int) ([]*domain.Account, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) (*usecase.TransactionPage, error)
	BalanceAt(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts, optionally of one owner kind.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := domain.OwnerKind(r.URL.Query().Get("owner_kind"))
	if kind != "" && !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid owner_kind", string(kind))
		return
	}

	accounts, err := h.accountUC.ListAccounts(r.Context(), kind, parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeDomainError(w, r, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// GetBalance returns an account's current balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.accountUC.GetBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{AccountID: id, Balance: balance})
}

// GetOwnerBalance returns the balance of an owner's account. An owner
// without an account has a zero balance.
func (h *AccountHandler) GetOwnerBalance(w http.ResponseWriter, r *http.Request) {
	kind := domain.OwnerKind(chi.URLParam(r, "kind"))
	ownerID := chi.URLParam(r, "ownerId")

	balance, err := h.accountUC.GetOwnerBalance(r.Context(), kind, ownerID)
	if err != nil {
		writeDomainError(w, r, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{AccountID: domain.AccountID(kind, ownerID), Balance: balance})
}

// ListTransactions returns a page of an account's history, newest first.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	input := usecase.ListTransactionsInput{
		AccountID:       chi.URLParam(r, "id"),
		PaymentIntentID: q.Get("payment_intent_id"),
		Cursor:          q.Get("cursor"),
		Limit:           parseIntQuery(r, "limit", 0),
	}

	for _, raw := range q["kind"] {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				input.Kinds = append(input.Kinds, domain.TransactionKind(k))
			}
		}
	}

	var ok bool
	if input.From, ok = parseTimeQuery(w, r, "from"); !ok {
		return
	}
	if input.To, ok = parseTimeQuery(w, r, "to"); !ok {
		return
	}

	page, err := h.accountUC.ListTransactions(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionPageFromUseCase(page))
}

// GetHistoricalBalance returns the balance at a point in time.
func (h *AccountHandler) GetHistoricalBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	at, ok := parseTimeQuery(w, r, "at")
	if !ok {
		return
	}
	if at == nil {
		writeError(w, http.StatusBadRequest, "missing at parameter", "use RFC3339")
		return
	}

	balance, err := h.accountUC.BalanceAt(r.Context(), id, *at)
	if err != nil {
		writeDomainError(w, r, "failed to get historical balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{AccountID: id, Balance: balance, At: at})
}

func parseTimeQuery(w http.ResponseWriter, r *http.Request, key string) (*time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+key+" parameter", "use RFC3339")
		return nil, false
	}
	return &t, true
}
