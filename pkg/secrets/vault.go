// Package secrets copies deployment secrets from a Vault KV engine into the
// process environment so configuration can be read from one place.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rudzz/marketplace/pkg/retry"
)

// VaultConfig describes where the secrets live
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite lets Vault values replace variables already set
	Overwrite bool
	Retry     retry.Config
}

// Result reports what a load did
type Result struct {
	Enabled bool
	Path    string
	Loaded  int
	Skipped int
}

// VaultConfigFromEnv reads the VAULT_* variables
func VaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     envOr("VAULT_MOUNT", "secret"),
		Path:      envOr("VAULT_PATH", "marketplace"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		Retry: retry.Config{
			MaxAttempts:     4,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        2 * time.Second,
			BackoffFactor:   2,
			MaxTotalTimeout: 15 * time.Second,
		},
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if d, err := time.ParseDuration(os.Getenv("VAULT_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

// Load fetches the secret at cfg.Path and exports each key as an
// environment variable. Keys already present in the environment are kept
// unless Overwrite is set.
func Load(ctx context.Context, cfg VaultConfig) (Result, error) {
	if !cfg.Enabled {
		return Result{}, nil
	}
	result := Result{Enabled: true, Path: cfg.Path}

	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return result, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	data, err := fetch(ctx, cfg)
	if err != nil {
		return result, err
	}

	for key, value := range data {
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped++
			continue
		}
		if err := os.Setenv(key, stringify(value)); err != nil {
			return result, fmt.Errorf("failed to export %s: %w", key, err)
		}
		result.Loaded++
	}
	return result, nil
}

func fetch(ctx context.Context, cfg VaultConfig) (map[string]interface{}, error) {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Addr, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("X-Vault-Token", cfg.Token)
	if cfg.Namespace != "" {
		client.SetHeader("X-Vault-Namespace", cfg.Namespace)
	}

	path := secretPath(cfg.Mount, cfg.Path, cfg.KVVersion)

	var payload map[string]interface{}
	err := retry.Do(ctx, cfg.Retry, func() error {
		resp, err := client.R().SetContext(ctx).Get(path)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode() >= http.StatusInternalServerError:
			return fmt.Errorf("vault returned %s", resp.Status())
		case resp.IsError():
			return retry.Permanent(fmt.Errorf("vault fetch failed: %s %s", resp.Status(), strings.TrimSpace(resp.String())))
		}
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return retry.Permanent(fmt.Errorf("invalid vault response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return extractData(payload, cfg.KVVersion)
}

// secretPath builds the read path; KV v2 nests secrets under data/
func secretPath(mount, path string, kvVersion int) string {
	mount = strings.Trim(mount, "/")
	path = strings.TrimLeft(path, "/")
	if kvVersion == 1 {
		return fmt.Sprintf("/v1/%s/%s", mount, path)
	}
	return fmt.Sprintf("/v1/%s/data/%s", mount, path)
}

func extractData(payload map[string]interface{}, kvVersion int) (map[string]interface{}, error) {
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault response missing data for KV v%d", kvVersion)
	}
	if kvVersion == 1 {
		return data, nil
	}
	inner, ok := data["data"].(map[string]interface{})
	if !ok {
		return nil, errors.New("vault response missing data for KV v2")
	}
	return inner, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
