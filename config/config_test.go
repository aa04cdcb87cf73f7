package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(config.Options{SkipProcessEnv: true})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "storefront.db", cfg.Database.DSN)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, config.PriceTrustClient, cfg.Sales.PricePolicy)
	assert.Equal(t, 30*time.Second, cfg.Storage.UploadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, "admin123", cfg.Admin.Password)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"app_port": 9000,
		"db_driver": "postgres",
		"sales_max_attempts": 2
	}`), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte(`
# comment
export APP_PORT=9100
SALES_PRICE_POLICY="revalidate-against-catalog"
CORS_ORIGINS=https://a.example, https://b.example
`), 0o600))

	cfg, err := config.Load(config.Options{
		ConfigPath:     jsonPath,
		EnvPath:        envPath,
		SkipProcessEnv: true,
		Overrides:      map[string]string{"jwt_ttl": "15m"},
	})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.App.Port, ".env overrides app.json")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.DSN, "dbname=storefront")
	assert.Equal(t, 2, cfg.Sales.MaxAttempts)
	assert.Equal(t, config.PriceRevalidate, cfg.Sales.PricePolicy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 15*time.Minute, cfg.JWT.TTL)
}

func TestLoadProcessEnvWins(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("MAIL_TIMEOUT", "5s")

	cfg, err := config.Load(config.Options{})
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, 5*time.Second, cfg.Mail.Timeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":        {"DB_DRIVER": "oracle"},
		"price policy":  {"SALES_PRICE_POLICY": "whatever"},
		"s3 bucket":     {"STORAGE_DISK": "s3"},
		"jwt secret":    {"JWT_SECRET": ""},
		"mail driver":   {"MAIL_DRIVER": "pigeon"},
		"stall window":  {"SALES_STALL_AFTER": "45s", "RECEIPT_UPLOAD_TIMEOUT": "30s", "MAIL_TIMEOUT": "30s"},
		"stall equal":   {"SALES_STALL_AFTER": "60s", "RECEIPT_UPLOAD_TIMEOUT": "30s", "MAIL_TIMEOUT": "30s"},
		"no upload cap": {"RECEIPT_UPLOAD_TIMEOUT": "0s"},
		"no mail cap":   {"MAIL_TIMEOUT": "0s"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(config.Options{SkipProcessEnv: true, Overrides: overrides})
			assert.Error(t, err)
		})
	}
}

func TestLoadAcceptsStallWindowAboveStepTimeouts(t *testing.T) {
	cfg, err := config.Load(config.Options{SkipProcessEnv: true, Overrides: map[string]string{
		"SALES_STALL_AFTER":      "61s",
		"RECEIPT_UPLOAD_TIMEOUT": "30s",
		"MAIL_TIMEOUT":           "30s",
	}})
	require.NoError(t, err)
	assert.Equal(t, 61*time.Second, cfg.Sales.StallAfter)
}
