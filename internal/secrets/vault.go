package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// VaultClient reads secrets from Azure Key Vault with a small in-process
// cache, so repeated config lookups during startup cost one round trip.
type VaultClient struct {
	client   *azsecrets.Client
	logger   *zap.Logger
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewVaultClient authenticates via DefaultAzureCredential: environment
// service principal, managed identity in Azure, or az CLI locally.
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	v := &VaultClient{
		client:   client,
		logger:   logger,
		cacheTTL: cfg.CacheTTL,
	}
	if v.cacheTTL <= 0 {
		v.cacheTTL = 5 * time.Minute
	}
	if cfg.CacheEnabled {
		v.cache = make(map[string]cachedSecret)
	}

	logger.Info("Key Vault client initialized", zap.String("vault_url", vaultURL))
	return v, nil
}

// GetSecret fetches the latest version of a secret.
func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := v.fromCache(name); ok {
		return value, nil
	}

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %q has no value", name)
	}

	value := *resp.Value
	v.store(name, value)
	return value, nil
}

func (v *VaultClient) fromCache(name string) (string, bool) {
	if v.cache == nil {
		return "", false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.cache[name]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(v.cache, name)
		return "", false
	}
	return entry.value, true
}

func (v *VaultClient) store(name, value string) {
	if v.cache == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache[name] = cachedSecret{value: value, expiresAt: time.Now().Add(v.cacheTTL)}
}
