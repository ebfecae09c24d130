package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/creditledger/internal/adapter/gateway"
	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// IntentService defines the intent operations needed by IntentHandler.
type IntentService interface {
	CreatePurchaseIntent(ctx context.Context, input usecase.CreatePurchaseIntentInput) (*domain.PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error)
	ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID string, limit, offset int) ([]*domain.PaymentIntent, error)
	Cancel(ctx context.Context, id string) (*domain.PaymentIntent, error)
	Events(ctx context.Context, id string, limit, offset int) ([]*domain.OutboxEvent, error)
	Packages() []domain.CreditPackage
}

// Reconciler confirms intents against gateway proof.
type Reconciler interface {
	Reconcile(ctx context.Context, intentID string, proof *domain.PaymentProof) (*usecase.ReconciliationResult, error)
	ReconcileByExternalReference(ctx context.Context, ref string, proof *domain.PaymentProof) (*usecase.ReconciliationResult, error)
}

// IntentHandler handles payment intent requests.
type IntentHandler struct {
	intentUC    IntentService
	reconcileUC Reconciler
}

// NewIntentHandler creates a new IntentHandler.
func NewIntentHandler(intentUC IntentService, reconcileUC Reconciler) *IntentHandler {
	return &IntentHandler{intentUC: intentUC, reconcileUC: reconcileUC}
}

// Create opens a purchase intent.
func (h *IntentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	intent, err := h.intentUC.CreatePurchaseIntent(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to create intent", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.IntentFromDomain(intent))
}

// Get retrieves an intent by ID.
func (h *IntentHandler) Get(w http.ResponseWriter, r *http.Request) {
	intent, err := h.intentUC.GetIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get intent", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IntentFromDomain(intent))
}

// ListByOwner lists an owner's intents, newest first.
func (h *IntentHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	intents, err := h.intentUC.ListByOwner(
		r.Context(),
		domain.OwnerKind(chi.URLParam(r, "kind")),
		chi.URLParam(r, "ownerId"),
		parseIntQuery(r, "limit", 50),
		parseIntQuery(r, "offset", 0),
	)
	if err != nil {
		writeDomainError(w, r, "failed to list intents", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IntentsFromDomain(intents))
}

// Events lists an intent's lifecycle events.
func (h *IntentHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.intentUC.Events(
		r.Context(),
		chi.URLParam(r, "id"),
		parseIntQuery(r, "limit", 50),
		parseIntQuery(r, "offset", 0),
	)
	if err != nil {
		writeDomainError(w, r, "failed to list intent events", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}

// Cancel closes a pending intent.
func (h *IntentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	intent, err := h.intentUC.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to cancel intent", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.IntentFromDomain(intent))
}

// Reconcile applies a gateway status payload to an intent. It is the
// entry point of external polling loops; the response is authoritative.
// Payloads that do not report a payment leave the intent unchanged.
func (h *IntentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, domain.MaxProofSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}

	proof, err := gateway.Normalize(body)
	if err != nil {
		writeDomainError(w, r, "invalid payment proof", err)
		return
	}

	if proof.Status != domain.ProofStatusPaid {
		intent, err := h.intentUC.GetIntent(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, "failed to get intent", err)
			return
		}
		writeJSON(w, http.StatusAccepted, dto.ProofIgnoredResponse{
			Status:      "ignored",
			ProofStatus: string(proof.Status),
			Intent:      dto.IntentFromDomain(intent),
		})
		return
	}

	result, err := h.reconcileUC.Reconcile(r.Context(), id, proof)
	if err != nil {
		writeDomainError(w, r, "failed to reconcile intent", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}

// Packages lists the credit package catalog.
func (h *IntentHandler) Packages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.PackagesFromDomain(h.intentUC.Packages()))
}
