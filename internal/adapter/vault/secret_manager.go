package vault

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/pkg/config"
)

// Keys read from the KV v2 secret.
const (
	KeyDatabaseURL         = "database_url"
	KeyRedisURL            = "redis_url"
	KeyStripeSecretKey     = "stripe_secret_key"
	KeyStripeWebhookSecret = "stripe_webhook_secret"
)

type SecretManager struct {
	client     *api.Client
	mountPath  string
	secretPath string
	log        *zap.Logger
}

func NewSecretManager(cfg config.VaultConfig, log *zap.Logger) (*SecretManager, error) {
	vc := api.DefaultConfig()
	vc.Address = cfg.Address

	client, err := api.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	mount := strings.Trim(cfg.MountPath, "/")
	if mount == "" {
		mount = "secret"
	}
	path := strings.Trim(cfg.SecretPath, "/")
	if path == "" {
		path = "handover-engine"
	}

	return &SecretManager{client: client, mountPath: mount, secretPath: path, log: log}, nil
}

// Secrets reads the KV v2 secret and returns its string values.
func (sm *SecretManager) Secrets(ctx context.Context) (map[string]string, error) {
	secret, err := sm.client.Logical().ReadWithContext(ctx, sm.mountPath+"/data/"+sm.secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault secret %s/%s not found", sm.mountPath, sm.secretPath)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault secret %s/%s is not a kv v2 secret", sm.mountPath, sm.secretPath)
	}

	out := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

// Apply overrides connection strings and payment credentials in cfg with
// the values found in Vault. Missing keys leave cfg untouched.
func (sm *SecretManager) Apply(ctx context.Context, cfg *config.Config) error {
	secrets, err := sm.Secrets(ctx)
	if err != nil {
		return err
	}

	applied := 0
	set := func(key string, dst *string) {
		if v := secrets[key]; v != "" {
			*dst = v
			applied++
		}
	}
	set(KeyDatabaseURL, &cfg.Database.URL)
	set(KeyRedisURL, &cfg.Redis.URL)
	set(KeyStripeSecretKey, &cfg.Payment.Stripe.SecretKey)
	set(KeyStripeWebhookSecret, &cfg.Payment.Stripe.WebhookSecret)

	sm.log.Info("Loaded secrets from Vault",
		zap.String("path", sm.mountPath+"/"+sm.secretPath),
		zap.Int("applied", applied),
	)
	return nil
}
