package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/pkg/config"
)

func newVault(t *testing.T, handler http.HandlerFunc) *SecretManager {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sm, err := NewSecretManager(config.VaultConfig{
		Address:    srv.URL,
		Token:      "test-token",
		MountPath:  "kv",
		SecretPath: "handover",
	}, zap.NewNop())
	require.NoError(t, err)
	return sm
}

func TestSecretManager_Apply(t *testing.T) {
	sm := newVault(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/kv/data/handover", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{
			"database_url":"postgres://vault@db/handover",
			"stripe_secret_key":"sk_test_vault",
			"stripe_webhook_secret":""
		},"metadata":{"version":3}}}`))
	})

	cfg := &config.Config{}
	cfg.Redis.URL = "redis://localhost:6379"
	cfg.Payment.Stripe.WebhookSecret = "whsec_local"

	require.NoError(t, sm.Apply(context.Background(), cfg))

	assert.Equal(t, "postgres://vault@db/handover", cfg.Database.URL)
	assert.Equal(t, "sk_test_vault", cfg.Payment.Stripe.SecretKey)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "whsec_local", cfg.Payment.Stripe.WebhookSecret)
}

func TestSecretManager_NotFound(t *testing.T) {
	sm := newVault(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[]}`))
	})

	err := sm.Apply(context.Background(), &config.Config{})
	assert.Error(t, err)
}
