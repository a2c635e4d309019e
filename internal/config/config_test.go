package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
asaas:
  api_url: https://sandbox.asaas.com/api/v3
  pix_address_key: chave-pix-teste
  charge_ttl: 90m
catalog:
  cache_ttl: 10m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Asaas.APIURL != "https://sandbox.asaas.com/api/v3" {
		t.Fatalf("unexpected asaas api url: %s", cfg.Asaas.APIURL)
	}
	if cfg.Asaas.PixAddressKey != "chave-pix-teste" {
		t.Fatalf("unexpected pix address key: %s", cfg.Asaas.PixAddressKey)
	}
	if cfg.Asaas.ChargeTTL.String() != "1h30m0s" {
		t.Fatalf("unexpected charge ttl: %s", cfg.Asaas.ChargeTTL)
	}
	if cfg.Catalog.CacheTTL.String() != "10m0s" {
		t.Fatalf("unexpected catalog cache ttl: %s", cfg.Catalog.CacheTTL)
	}

	if cfg.HTTP.ReadTimeout.String() != "5s" {
		t.Fatalf("read timeout default should stay 5s, got %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis addr default should stay localhost:6379, got %s", cfg.Redis.Addr)
	}
	if cfg.S3.Bucket != "sportstips-qrcodes" {
		t.Fatalf("unexpected default bucket: %s", cfg.S3.Bucket)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Asaas.APIURL != "https://api.asaas.com/v3" {
		t.Fatalf("unexpected default asaas url: %s", cfg.Asaas.APIURL)
	}
	if cfg.Asaas.ChargeTTL.String() != "2h0m0s" {
		t.Fatalf("unexpected default charge ttl: %s", cfg.Asaas.ChargeTTL)
	}
	if cfg.Catalog.CacheTTL.String() != "5m0s" {
		t.Fatalf("unexpected default catalog cache ttl: %s", cfg.Catalog.CacheTTL)
	}
}

func TestLoadEnvOverridesWinOverYAML(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ASAAS_API_KEY", "env-key")
	t.Setenv("POSTGRES_DSN", "postgres://env:env@db:5432/tips")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Asaas.APIKey != "env-key" {
		t.Fatalf("unexpected asaas api key: %s", cfg.Asaas.APIKey)
	}
	if cfg.Postgres.DSN != "postgres://env:env@db:5432/tips" {
		t.Fatalf("unexpected postgres dsn: %s", cfg.Postgres.DSN)
	}
}

func TestLoadRejectsMissingAPIKeyInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when asaas.api_key is empty in production")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"ASAAS_API_URL",
		"ASAAS_API_KEY",
		"ASAAS_WEBHOOK_TOKEN",
		"ASAAS_PIX_ADDRESS_KEY",
		"ASAAS_CHARGE_TTL",
		"ASAAS_HTTP_TIMEOUT",
		"TELEGRAM_BOT_TOKEN",
		"TELEGRAM_OPS_CHAT_ID",
		"CATALOG_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}
}
