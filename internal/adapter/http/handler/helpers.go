package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/creditledger/internal/adapter/gateway"
	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

// retryAfterSeconds is advertised when storage is temporarily unavailable.
const retryAfterSeconds = "2"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrAmountTooSmallToSplit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrReconciliationStorageFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidSplitConfiguration),
		errors.Is(err, domain.ErrNoSplitConfiguration),
		errors.Is(err, domain.ErrUnresolvedRecipient),
		errors.Is(err, domain.ErrSplitConfigurationExists),
		errors.Is(err, domain.ErrIntentAlreadyTerminal),
		errors.Is(err, domain.ErrIntentNotDue),
		errors.Is(err, domain.ErrDuplicateReference),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrProofAmountMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrIntentNotFound),
		errors.Is(err, domain.ErrSplitConfigurationMissing),
		errors.Is(err, domain.ErrPackageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrProofTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrAmountTooSmall),
		errors.Is(err, domain.ErrAmountScale),
		errors.Is(err, domain.ErrInvalidAccountID),
		errors.Is(err, domain.ErrInvalidOwnerID),
		errors.Is(err, domain.ErrInvalidOwnerKind),
		errors.Is(err, domain.ErrInvalidDescription),
		errors.Is(err, domain.ErrInvalidTransactionKind),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrNoTargetAccount),
		errors.Is(err, domain.ErrExpiryNotInFuture),
		errors.Is(err, domain.ErrInvalidProof),
		errors.Is(err, usecase.ErrInvalidCursor),
		errors.Is(err, gateway.ErrBadSignature),
		errors.Is(err, gateway.ErrMissingSignature),
		errors.Is(err, gateway.ErrStaleSignature):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isConfigError(err error) bool {
	return errors.Is(err, domain.ErrInvalidSplitConfiguration) ||
		errors.Is(err, domain.ErrNoSplitConfiguration) ||
		errors.Is(err, domain.ErrUnresolvedRecipient)
}

// writeDomainError maps err to a response. Configuration problems and
// server faults are logged at error level on the request logger.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := mapDomainError(err)
	logger := zerolog.Ctx(r.Context())

	switch {
	case isConfigError(err):
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("split configuration error")
	case status >= http.StatusInternalServerError:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}
	writeError(w, status, message, detail)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
