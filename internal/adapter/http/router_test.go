package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/adapter/gateway"
	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/creditledger/internal/adapter/http/middleware"
	"github.com/iho/creditledger/internal/adapter/repository/memory"
	"github.com/iho/creditledger/internal/adapter/repository/postgres"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/auth"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
	"github.com/iho/creditledger/internal/usecase"
)

type testServer struct {
	router  http.Handler
	jwt     *auth.JWTManager
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, opts ...func(*RouterConfig)) *testServer {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	accounts := memory.NewAccountRepository(store)
	transactions := memory.NewTransactionRepository(store)
	intentRepo := memory.NewIntentRepository(store)
	splitRepo := memory.NewSplitConfigRepository(store)
	outbox := memory.NewOutboxRepository(store)
	audit := memory.NewAuditRepository(store)
	kv := memory.NewKeyValue()

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	logger := zerolog.Nop()
	idGen := postgres.NewULIDGenerator()

	packages, err := domain.ParseCreditPackages([]string{"starter:Starter:10.00:12"})
	require.NoError(t, err)

	ledger := usecase.NewLedgerUseCase(txm, accounts, transactions, outbox, audit, idGen, nil, m, logger)
	splits := usecase.NewSplitUseCase(txm, splitRepo, outbox, audit, idGen, m, logger)
	intents := usecase.NewIntentUseCase(txm, intentRepo, outbox, audit, splits, idGen, usecase.IntentSettings{
		PlatformOwnerID:  "main",
		DefaultPartnerID: "clinic-1",
		Packages:         packages,
		TTL:              time.Hour,
	}, m, logger)
	reconcile := usecase.NewReconciliationUseCase(txm, intentRepo, transactions, ledger, intents, splits, idGen, nil, m, logger)

	hash, err := usecase.HashPassword("operator-pass")
	require.NoError(t, err)
	creds, err := usecase.ParseOperatorCredentials([]string{"ops:operator:" + hash, "eve:viewer:" + hash})
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("router-secret", time.Hour)

	cfg := RouterConfig{
		AccountHandler:   handler.NewAccountHandler(usecase.NewQueryUseCase(accounts, transactions)),
		LedgerHandler:    handler.NewLedgerHandler(ledger),
		IntentHandler:    handler.NewIntentHandler(intents, reconcile),
		WebhookHandler:   handler.NewWebhookHandler(reconcile, handler.WebhookOptions{Deduper: kv, Metrics: m}),
		SplitHandler:     handler.NewSplitHandler(splits),
		AuthHandler:      handler.NewAuthHandler(usecase.NewOperatorUseCase(creds), jwtManager),
		HealthHandler:    handler.NewHealthHandler(nil),
		IdempotencyStore: kv,
		JWTManager:       jwtManager,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:           logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{router: NewRouter(cfg), jwt: jwtManager, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ready", "", "").Code)
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.RateLimiter = apimiddleware.NewRateLimiter(1, 1, cfg.Metrics)
	})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodGet, "/health", "", "").Code)
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	s := newTestServer(t)

	chiRoutes, ok := s.router.(chi.Routes)
	require.True(t, ok)

	seen := map[string]bool{}
	require.NoError(t, chi.Walk(chiRoutes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}))

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /api/v1/auth/token",
		"GET /api/v1/packages",
		"POST /api/v1/webhooks/payments",
		"POST /api/v1/intents",
		"GET /api/v1/intents/{id}",
		"GET /api/v1/intents/{id}/events",
		"POST /api/v1/intents/{id}/cancel",
		"POST /api/v1/intents/{id}/reconcile",
		"GET /api/v1/accounts/{id}/balance",
		"GET /api/v1/accounts/{id}/transactions",
		"GET /api/v1/accounts/{id}/balance/history",
		"GET /api/v1/owners/{kind}/{ownerId}/balance",
		"POST /api/v1/ledger/usage",
		"POST /api/v1/ledger/refunds",
		"POST /api/v1/ledger/transfers",
		"GET /api/v1/ledger/consistency",
		"GET /api/v1/split-configurations",
		"POST /api/v1/split-configurations",
		"PUT /api/v1/split-configurations/{id}",
		"DELETE /api/v1/split-configurations/{id}",
		"POST /api/v1/accounts/{id}/deactivate",
	}

	for _, route := range expected {
		assert.True(t, seen[route], "expected route %s to be registered", route)
	}
}

func TestNewRouter_SplitPurchaseViaWebhook(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/split-configurations",
		`{"service_category":"exam","shares":[{"recipient_kind":"platform","percentage":"30"},{"recipient_kind":"partner","percentage":"20"},{"recipient_kind":"client","percentage":"50"}]}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/intents",
		`{"owner_kind":"client","owner_id":"c1","service_category":"exam","partner_id":"lab-7","external_reference":"gw-100","amount":"100.00"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var intent dto.IntentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
	assert.Equal(t, "pending", intent.Status)

	webhook := `{"pix":[{"txid":"gw-100","endToEndId":"E123","valor":"100.00","horario":"2024-03-01T10:00:00Z"}]}`
	rec = s.do(t, http.MethodPost, "/api/v1/webhooks/payments", webhook, "", handler.DeliveryIDHeader, "d-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/webhooks/payments", webhook, "", handler.DeliveryIDHeader, "d-2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var replay dto.ReconciliationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replay))
	assert.True(t, replay.AlreadyProcessed)
	assert.Len(t, replay.Transactions, 3)

	for id, want := range map[string]string{"platform:main": "30", "partner:lab-7": "20", "client:c1": "50"} {
		rec = s.do(t, http.MethodGet, "/api/v1/accounts/"+id+"/balance", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var bal dto.BalanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
		assert.Equal(t, want, bal.Balance.String(), id)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/consistency", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":true`)

	rec = s.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/cancel", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID+"/events", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var events []dto.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "intent.created", events[0].EventType)
	assert.Equal(t, "intent.confirmed", events[1].EventType)
}

func TestNewRouter_UsageOverdraftAndIdempotency(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/ledger/refunds", `{"account_id":"client:c9","amount":"5"}`, "",
		apimiddleware.IdempotencyKeyHeader, "refund-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/ledger/refunds", `{"account_id":"client:c9","amount":"5"}`, "",
		apimiddleware.IdempotencyKeyHeader, "refund-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(apimiddleware.IdempotencyReplayHeader))

	rec = s.do(t, http.MethodPost, "/api/v1/ledger/usage", `{"account_id":"client:c9","amount":"6"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/accounts/client:c9/balance", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"5"`)
}

func TestNewRouter_AuthEnabled(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.AuthEnabled = true })

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/packages", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/split-configurations", "", "").Code)

	login := func(id string) string {
		rec := s.do(t, http.MethodPost, "/api/v1/auth/token", `{"operator_id":"`+id+`","password":"operator-pass"}`, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tok dto.TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
		return tok.Token
	}
	viewer := login("eve")
	operator := login("ops")

	body := `{"service_category":"exam","shares":[{"recipient_kind":"platform","percentage":"100"}]}`

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/split-configurations", "", viewer).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/split-configurations", body, viewer).Code)
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/split-configurations", body, operator).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/accounts/client:c1/deactivate", "", operator).Code)

	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "creditledger_auth_failures_total")
}

func TestNewRouter_WebhookSignature(t *testing.T) {
	verifier := gateway.NewVerifier("whsec", 5*time.Minute)
	s := newTestServer(t)
	s2 := newTestServer(t, func(cfg *RouterConfig) {
		cfg.WebhookHandler = handler.NewWebhookHandler(nil, handler.WebhookOptions{Verifier: verifier})
	})

	body := `{"txid":"unknown","status":"paid"}`
	rec := s2.do(t, http.MethodPost, "/api/v1/webhooks/payments", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/webhooks/payments", body, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
