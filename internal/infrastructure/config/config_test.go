package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, config.StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, "main", cfg.PlatformOwnerID)
	assert.Equal(t, 30*time.Minute, cfg.IntentTTL)
	assert.Zero(t, cfg.ConfirmationGrace)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("OPERATORS", "alice:admin:$2a$10$abc;bob:viewer:$2a$10$def")
	t.Setenv("CREDIT_PACKAGES", "starter:Starter:10.00:12;pro:Pro:45.00:60")
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "15s")
	t.Setenv("CONFIRMATION_GRACE", "2m")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "postgres://example", cfg.DatabaseURL)
	assert.Equal(t, "redis://example", cfg.RedisURL)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.DatabaseTimeout)
	assert.Equal(t, "top-secret", cfg.JWTSecret)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, []string{"alice:admin:$2a$10$abc", "bob:viewer:$2a$10$def"}, cfg.Operators)
	assert.Len(t, cfg.CreditPackages, 2)
	assert.Equal(t, "whsec", cfg.WebhookSecret)
	assert.Equal(t, 15*time.Second, cfg.ExpirySweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.ConfirmationGrace)
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"auth without secret", map[string]string{"AUTH_ENABLED": "true", "JWT_SECRET": "", "WEBHOOK_SECRET": "whsec"}},
		{"auth without webhook secret", map[string]string{"AUTH_ENABLED": "true", "JWT_SECRET": "top-secret", "WEBHOOK_SECRET": ""}},
		{"zero intent ttl", map[string]string{"INTENT_TTL": "0s"}},
		{"negative grace", map[string]string{"CONFIRMATION_GRACE": "-1m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "soon")

	_, err := config.Load()
	assert.Error(t, err)
}
