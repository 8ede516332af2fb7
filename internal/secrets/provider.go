package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource selects where credentials are read from.
type SecretSource string

const (
	// SourceEnvironment reads secrets from environment variables.
	SourceEnvironment SecretSource = "environment"
	// SourceVault reads secrets from Azure Key Vault.
	SourceVault SecretSource = "vault"
	// SourceAuto picks vault for staging/production and environment
	// variables for everything else.
	SourceAuto SecretSource = "auto"
)

// Provider hands out credentials to the config loader without it knowing
// whether they live in Key Vault or in the process environment.
type Provider struct {
	source      SecretSource
	vaultClient *VaultClient
	logger      *zap.Logger
}

type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := cfg.Source
	if source == SourceAuto {
		switch cfg.Environment {
		case "development", "local", "":
			source = SourceEnvironment
		default:
			source = SourceVault
		}
		logger.Info("resolved secret source",
			zap.String("source", string(source)),
			zap.String("environment", cfg.Environment))
	}

	p := &Provider{source: source, logger: logger}

	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		client, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		p.vaultClient = client
	}

	return p, nil
}

// GetSecret resolves a secret by name. For the vault source the name is the
// Key Vault secret name; for the environment source it is the variable name.
func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		value := os.Getenv(name)
		if value == "" {
			return "", fmt.Errorf("environment variable %q not set", name)
		}
		return value, nil
	case SourceVault:
		if p.vaultClient == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		return p.vaultClient.GetSecret(ctx, name)
	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

// GetSecretOrEnv resolves a secret, letting an explicitly set environment
// variable override the configured source. Deployments use this to patch a
// single credential without touching the vault.
func (p *Provider) GetSecretOrEnv(ctx context.Context, name, envName string) (string, error) {
	if value := os.Getenv(envName); value != "" {
		p.logger.Debug("secret overridden by environment variable", zap.String("env", envName))
		return value, nil
	}
	return p.GetSecret(ctx, name)
}
