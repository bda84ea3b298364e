package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:    defaultAddr,
		Storage: StorageConfig{Backend: BackendMemory},
		Catalog: CatalogConfig{Source: CatalogEmbedded},
		Payment: PaymentConfig{
			Merchant:      "Shaily Verma Art Studio",
			Currency:      "INR",
			CheckoutURL:   "http://localhost:8081/checkout",
			Timeout:       15 * time.Minute,
			Retention:     24 * time.Hour,
			SweepInterval: 30 * time.Second,
		},
		Session:   SessionConfig{Cookie: "studio_session", IdleTTL: 30 * time.Minute},
		RateLimit: RateLimitConfig{Max: 60, Window: time.Minute},
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFiles: true,
		SkipEnv:   true,
		SkipFlags: true,
	})
	require.NoError(t, loader.Load())

	// Built-in defaults alone form a valid configuration.
	require.NoError(t, cfg.Validate())
	want := validConfig()
	assert.Equal(t, want.Addr, cfg.Addr)
	assert.Equal(t, want.Payment, cfg.Payment)
	assert.Equal(t, "Shaily Verma Art Studio", cfg.Payment.Merchant)
	assert.Equal(t, want.Session, cfg.Session)
	assert.Equal(t, want.RateLimit, cfg.RateLimit)
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "Defaults", modify: func(*Config) {}},
		{
			name:   "PostgresWithoutURL",
			modify: func(c *Config) { c.Storage.Backend = BackendPostgres },
			errMsg: "postgres storage requires a database URL",
		},
		{
			name: "PostgresWithURL",
			modify: func(c *Config) {
				c.Storage.Backend = BackendPostgres
				c.Storage.DatabaseURL = "postgres://localhost/studio"
			},
		},
		{
			name:   "RedisWithoutURL",
			modify: func(c *Config) { c.Storage.Backend = BackendRedis },
			errMsg: "redis storage requires a redis URL",
		},
		{
			name:   "UnknownBackend",
			modify: func(c *Config) { c.Storage.Backend = "etcd" },
			errMsg: `unknown storage backend "etcd"`,
		},
		{
			name:   "PostgresCatalogWithoutURL",
			modify: func(c *Config) { c.Catalog.Source = CatalogPostgres },
			errMsg: "postgres catalog requires a database URL",
		},
		{
			name:   "UnknownCatalog",
			modify: func(c *Config) { c.Catalog.Source = "s3" },
			errMsg: `unknown catalog source "s3"`,
		},
		{
			name:   "RelativeCheckoutURL",
			modify: func(c *Config) { c.Payment.CheckoutURL = "/checkout" },
			errMsg: "must be absolute",
		},
		{
			name:   "NoCurrency",
			modify: func(c *Config) { c.Payment.Currency = "" },
			errMsg: "payment currency is required",
		},
		{
			name:   "ZeroSweepInterval",
			modify: func(c *Config) { c.Payment.SweepInterval = 0 },
			errMsg: "sweep interval must be positive",
		},
		{
			name:   "NegativeTimeout",
			modify: func(c *Config) { c.Payment.Timeout = -time.Second },
			errMsg: "must not be negative",
		},
		{
			name:   "NoCookie",
			modify: func(c *Config) { c.Session.Cookie = "" },
			errMsg: "session cookie name is required",
		},
		{
			name:   "ZeroRateLimit",
			modify: func(c *Config) { c.RateLimit.Max = 0 },
			errMsg: "rate limit max and window must be positive",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379")
	t.Setenv("PORT", "9000")

	cfg := validConfig()
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/db", cfg.Storage.DatabaseURL)
	assert.Equal(t, "redis://platform:6379", cfg.Storage.RedisURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	// Explicit settings win over platform variables.
	cfg = validConfig()
	cfg.Addr = "127.0.0.1:8080"
	cfg.Storage.DatabaseURL = "postgres://explicit/db"
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/db", cfg.Storage.DatabaseURL)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
}

func TestNeedsPostgres(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.needsPostgres())

	cfg.Catalog.Source = CatalogPostgres
	assert.True(t, cfg.needsPostgres())

	cfg = validConfig()
	cfg.Storage.Backend = BackendPostgres
	assert.True(t, cfg.needsPostgres())
}
