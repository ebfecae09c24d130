package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// LedgerService defines the write side needed by LedgerHandler.
type LedgerService interface {
	Append(ctx context.Context, input usecase.AppendInput) (*domain.Transaction, error)
	Transfer(ctx context.Context, input usecase.TransferInput) ([]*domain.Transaction, error)
	DeactivateAccount(ctx context.Context, accountID string) (*domain.Account, error)
	VerifyAccount(ctx context.Context, accountID string) (*usecase.ConsistencyReport, error)
	VerifyAll(ctx context.Context) (*usecase.LedgerConsistency, error)
}

// LedgerHandler handles direct ledger operations.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// RecordUsage debits credits for a consumed service.
func (h *LedgerHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req dto.UsageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "invalid amount", "usage amount must be positive")
		return
	}

	tx, err := h.ledgerUC.Append(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to record usage", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(tx))
}

// RecordRefund returns credits to an account.
func (h *LedgerHandler) RecordRefund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.ledgerUC.Append(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to record refund", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(tx))
}

// Transfer moves credits between two accounts.
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	txs, err := h.ledgerUC.Transfer(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionsFromDomain(txs))
}

// Deactivate stops an account from being debited.
func (h *LedgerHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledgerUC.DeactivateAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to deactivate account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// VerifyAccount replays one account's chain.
func (h *LedgerHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledgerUC.VerifyAccount(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		writeDomainError(w, r, "failed to verify account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromUseCase(report))
}

// VerifyAll replays every account's chain.
func (h *LedgerHandler) VerifyAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledgerUC.VerifyAll(r.Context())
	if err != nil {
		writeDomainError(w, r, "failed to verify ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerConsistencyFromUseCase(summary))
}
