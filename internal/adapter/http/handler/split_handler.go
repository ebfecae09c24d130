package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// SplitService defines the configuration operations needed by SplitHandler.
type SplitService interface {
	Create(ctx context.Context, input usecase.SplitConfigInput) (*domain.SplitConfiguration, error)
	Update(ctx context.Context, id string, input usecase.SplitConfigInput) (*domain.SplitConfiguration, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.SplitConfiguration, error)
	List(ctx context.Context) ([]*domain.SplitConfiguration, error)
	ValidateAll(ctx context.Context) error
}

// SplitHandler handles split configuration administration.
type SplitHandler struct {
	splitUC SplitService
}

// NewSplitHandler creates a new SplitHandler.
func NewSplitHandler(splitUC SplitService) *SplitHandler {
	return &SplitHandler{splitUC: splitUC}
}

// Create stores a new configuration.
func (h *SplitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.SplitConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.splitUC.Create(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to create split configuration", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SplitConfigFromDomain(cfg))
}

// Update replaces a configuration's shares.
func (h *SplitHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.SplitConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.splitUC.Update(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to update split configuration", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SplitConfigFromDomain(cfg))
}

// Delete removes a configuration.
func (h *SplitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.splitUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, "failed to delete split configuration", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get retrieves a configuration by ID.
func (h *SplitHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.splitUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get split configuration", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SplitConfigFromDomain(cfg))
}

// List returns every configuration.
func (h *SplitHandler) List(w http.ResponseWriter, r *http.Request) {
	cfgs, err := h.splitUC.List(r.Context())
	if err != nil {
		writeDomainError(w, r, "failed to list split configurations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SplitConfigsFromDomain(cfgs))
}

// Validate checks every stored configuration.
func (h *SplitHandler) Validate(w http.ResponseWriter, r *http.Request) {
	err := h.splitUC.ValidateAll(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, dto.SplitValidationResponse{Valid: true})
		return
	}
	if !errors.Is(err, domain.ErrInvalidSplitConfiguration) {
		writeDomainError(w, r, "failed to validate split configurations", err)
		return
	}

	resp := dto.SplitValidationResponse{}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			resp.Errors = append(resp.Errors, e.Error())
		}
	} else {
		resp.Errors = []string{err.Error()}
	}

	writeJSON(w, http.StatusConflict, resp)
}
