package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (INKSTORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (INKSTORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWTSecret   string `usage:"HMAC secret for verifying auth bearer tokens" flag:"jwt-secret"`
	Payment     PaymentConfig
	Checkout    CheckoutConfig
	Download    DownloadConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PaymentConfig holds payment provider credentials.
type PaymentConfig struct {
	SecretKey     string `usage:"Payment provider API secret key" flag:"payment-secret-key"`
	APIBase       string `default:"" usage:"Payment provider API base URL override (for tests)" flag:"payment-api-base"`
	WebhookSecret string `usage:"Payment provider webhook signing secret" flag:"payment-webhook-secret"`
}

// CheckoutConfig holds checkout session parameters.
type CheckoutConfig struct {
	SuccessURL string `default:"https://localhost:3000/checkout/success" usage:"Redirect after successful payment" flag:"success-url"`
	CancelURL  string `default:"https://localhost:3000/checkout/cancel" usage:"Redirect after cancelled payment" flag:"cancel-url"`
	Currency   string `default:"usd" usage:"Payment currency code"`
}

// DownloadConfig controls signed download link generation.
type DownloadConfig struct {
	BaseURL    string        `usage:"Base URL of the file store serving signed downloads" flag:"download-base-url"`
	SignSecret string        `usage:"HMAC secret for signing download URLs" flag:"download-sign-secret"`
	TTL        time.Duration `default:"15m" usage:"Lifetime of issued download links" flag:"download-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
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
		EnvPrefix: "INKSTORE",
		Files:     []string{"config.yaml", "/etc/inkstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set INKSTORE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set INKSTORE_JWT_SECRET")
	}
	if cfg.Payment.SecretKey == "" {
		return nil, errors.New("payment secret key is required: set INKSTORE_PAYMENT_SECRET_KEY")
	}
	if cfg.Payment.WebhookSecret == "" {
		return nil, errors.New("payment webhook secret is required: set INKSTORE_PAYMENT_WEBHOOK_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's INKSTORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
