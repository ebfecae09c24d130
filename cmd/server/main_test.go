package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/infrastructure/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", config.StorageMemory)
	t.Setenv("REDIS_URL", "")
	t.Setenv("CREDIT_PACKAGES", "starter:Starter:10.00:12")
	t.Setenv("HTTP_PORT", "0")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewAppMemoryDriver(t *testing.T) {
	cfg := memoryConfig(t)

	a, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(a.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/intents", "application/json",
		strings.NewReader(`{"owner_kind":"client","owner_id":"c1","package_id":"starter"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewAppRejectsBadPackages(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.CreditPackages = []string{"broken"}

	_, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	assert.ErrorContains(t, err, "CREDIT_PACKAGES")
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.ExpirySweepInterval = 10 * time.Millisecond
	cfg.OutboxInterval = 10 * time.Millisecond

	a, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}
