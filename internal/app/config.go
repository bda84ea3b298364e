package app

import (
	"net/url"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Catalog sources.
const (
	CatalogEmbedded = "embedded"
	CatalogPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (STUDIO_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Catalog   CatalogConfig
	Payment   PaymentConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects where carts and entitlements are persisted.
type StorageConfig struct {
	Backend     string `default:"memory" usage:"Storage backend: memory, postgres or redis"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STUDIO_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis URL (STUDIO_STORAGE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	RedisPrefix string `default:"studio:" usage:"Prefix for every Redis key"`
}

// CatalogConfig selects where the catalog is loaded from at startup.
type CatalogConfig struct {
	Source string `default:"embedded" usage:"Catalog source: embedded or postgres"`
}

// PaymentConfig configures the hosted checkout and attempt lifecycle.
type PaymentConfig struct {
	Merchant      string        `default:"Shaily Verma Art Studio" usage:"Merchant name shown on the checkout page"`
	Currency      string        `default:"INR" usage:"Payment currency"`
	CheckoutURL   string        `default:"http://localhost:8081/checkout" usage:"Hosted checkout page URL" flag:"checkout-url"`
	WebhookSecret string        `usage:"HMAC secret for payment webhooks (STUDIO_PAYMENT_WEBHOOK_SECRET)" flag:"webhook-secret"`
	Timeout       time.Duration `default:"15m" usage:"Time after which an unanswered payment is timed out"`
	Retention     time.Duration `default:"24h" usage:"Time finished payment attempts are kept"`
	SweepInterval time.Duration `default:"30s" usage:"Interval between payment timeout sweeps"`
}

// SessionConfig controls visitor sessions.
type SessionConfig struct {
	Cookie       string        `default:"studio_session" usage:"Session cookie name"`
	SecureCookie bool          `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookie"`
	IdleTTL      time.Duration `default:"30m" usage:"Idle time after which a session is evicted from memory"`
}

// RateLimitConfig controls the per-session sliding window rate limiter on
// mutating requests.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Max mutating requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookie)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STUDIO",
		Files:     []string{"config.yaml", "/etc/studio/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STUDIO_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("postgres storage requires a database URL: set STUDIO_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("redis storage requires a redis URL: set STUDIO_STORAGE_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Catalog.Source {
	case CatalogEmbedded:
	case CatalogPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("postgres catalog requires a database URL")
		}
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	u, err := url.Parse(c.Payment.CheckoutURL)
	if err != nil || !u.IsAbs() {
		return errors.Errorf("checkout URL %q must be absolute", c.Payment.CheckoutURL)
	}
	if c.Payment.Currency == "" {
		return errors.New("payment currency is required")
	}
	if c.Payment.SweepInterval <= 0 {
		return errors.New("payment sweep interval must be positive")
	}
	if c.Payment.Timeout < 0 || c.Payment.Retention < 0 {
		return errors.New("payment timeout and retention must not be negative")
	}
	if c.Session.Cookie == "" {
		return errors.New("session cookie name is required")
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("session idle TTL must be positive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// needsPostgres reports whether any component reads from PostgreSQL.
func (c *Config) needsPostgres() bool {
	return c.Storage.Backend == BackendPostgres || c.Catalog.Source == CatalogPostgres
}
