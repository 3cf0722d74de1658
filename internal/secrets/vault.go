// Package secrets resolves exchange API credentials, optionally from
// HashiCorp Vault. The database settings row always wins when it carries a
// key; Vault backs deployments that keep credentials out of the database.
package secrets

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"

	"futures-trading-engine/internal/logging"
)

// Credentials is an exchange API key pair
type Credentials struct {
	APIKey    string
	SecretKey string
}

// Source resolves credentials from some backing store
type Source interface {
	Load(ctx context.Context) (Credentials, error)
}

// StaticSource returns fixed credentials, used when Vault is disabled
type StaticSource struct {
	Creds Credentials
}

// Load returns the fixed credentials
func (s StaticSource) Load(context.Context) (Credentials, error) {
	return s.Creds, nil
}

// VaultSource reads credentials from a KV v2 secret
type VaultSource struct {
	client  *vault.Client
	mount   string
	keyPath string
	log     *logging.Logger
}

// NewVaultSource connects to Vault with the given token
func NewVaultSource(address, token, mount, keyPath string) (*VaultSource, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = address
	cfg.Timeout = 10 * time.Second

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultSource{
		client:  client,
		mount:   mount,
		keyPath: keyPath,
		log:     logging.WithComponent("secrets"),
	}, nil
}

// Load fetches the api_key and secret_key fields from the configured path
func (v *VaultSource) Load(ctx context.Context) (Credentials, error) {
	secret, err := v.client.KVv2(v.mount).Get(ctx, v.keyPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading vault secret %s/%s: %w", v.mount, v.keyPath, err)
	}

	creds := Credentials{
		APIKey:    stringField(secret.Data, "api_key"),
		SecretKey: stringField(secret.Data, "secret_key"),
	}
	if creds.APIKey == "" || creds.SecretKey == "" {
		return Credentials{}, fmt.Errorf("vault secret %s/%s missing api_key or secret_key", v.mount, v.keyPath)
	}

	v.log.Info("exchange credentials loaded from vault", "path", v.keyPath)
	return creds, nil
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
