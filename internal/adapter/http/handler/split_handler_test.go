package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/usecase"
)

func TestSplitHandler_Create(t *testing.T) {
	h := NewSplitHandler(&splitServiceStub{
		createFn: func(_ context.Context, input usecase.SplitConfigInput) (*domain.SplitConfiguration, error) {
			cfg := &domain.SplitConfiguration{ID: "sc-1", ServiceCategory: input.ServiceCategory, Shares: input.Shares}
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/split-configurations", strings.NewReader(
		`{"service_category":"exam","shares":[{"recipient_kind":"platform","percentage":"40"},{"recipient_kind":"partner","percentage":"60"}]}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/split-configurations", strings.NewReader(
		`{"service_category":"exam","shares":[{"recipient_kind":"platform","percentage":"40"}]}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSplitHandler_Validate(t *testing.T) {
	bad1 := &domain.InvalidSplitConfigurationError{ServiceCategory: "exam", Reason: "shares sum to 90"}
	bad2 := &domain.InvalidSplitConfigurationError{ServiceCategory: "scan", Reason: "duplicate recipient"}

	tests := []struct {
		name   string
		err    error
		status int
		errors int
	}{
		{"all valid", nil, http.StatusOK, 0},
		{"two invalid", errors.Join(bad1, bad2), http.StatusConflict, 2},
		{"storage error", errors.New("db down"), http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSplitHandler(&splitServiceStub{validateFn: func(context.Context) error { return tt.err }})

			rec := httptest.NewRecorder()
			h.Validate(rec, httptest.NewRequest(http.MethodPost, "/split-configurations/validate", nil))
			require.Equal(t, tt.status, rec.Code)

			if tt.status != http.StatusInternalServerError {
				var resp dto.SplitValidationResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.err == nil, resp.Valid)
				assert.Len(t, resp.Errors, tt.errors)
			}
		})
	}
}

func TestSplitHandler_MissingConfiguration(t *testing.T) {
	h := NewSplitHandler(&splitServiceStub{})

	rec := httptest.NewRecorder()
	h.Get(rec, withURLParams(httptest.NewRequest(http.MethodGet, "/split-configurations/x", nil), "id", "x"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, withURLParams(httptest.NewRequest(http.MethodDelete, "/split-configurations/x", nil), "id", "x"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
