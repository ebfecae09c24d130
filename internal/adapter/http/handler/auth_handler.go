package handler

import (
	"context"
	"net/http"

	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/auth"
)

// Authenticator verifies operator credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, id, password string) (*domain.Operator, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	operators  Authenticator
	jwtManager *auth.JWTManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(operators Authenticator, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		operators:  operators,
		jwtManager: jwtManager,
	}
}

// Token exchanges operator credentials for a JWT.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	op, err := h.operators.Authenticate(r.Context(), req.OperatorID, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials", "")
		return
	}

	token, err := h.jwtManager.Generate(op)
	if err != nil {
		writeDomainError(w, r, "failed to generate token", err)
		return
	}

	claims, err := h.jwtManager.Verify(token)
	if err != nil {
		writeDomainError(w, r, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Operator:  op.ID,
		Role:      string(op.Role),
	})
}

// Me returns the operator attached to the request.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	op, ok := domain.OperatorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"operator_id": op.ID, "role": string(op.Role)})
}
