package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (LEAGUE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (LEAGUE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for admin API key hashing (LEAGUE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Currency     string `default:"usd" usage:"ISO currency code stamped on checkout payloads"`
	Pricing      PricingConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PricingConfig tunes discount resolution.
type PricingConfig struct {
	FetchTimeout time.Duration `default:"3s" usage:"Timeout of every individual pricing read" flag:"fetch-timeout"`
	CacheTTL     time.Duration `default:"30s" usage:"TTL of cached catalog and season reads, 0 disables caching" flag:"cache-ttl"`
	Concurrency  int           `default:"8" usage:"Parallel discount definition loads per season"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Requests per window (also the burst)"`
	Window time.Duration `default:"1m"  usage:"Rate limit refill window"`
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

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LEAGUE",
		Files:     []string{"config.yaml", "/etc/league/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set LEAGUE_DATABASE_URL or DATABASE_URL")
	}
	if c.APIKeyPepper == "" {
		return errors.New("api key pepper is required: set LEAGUE_API_KEY_PEPPER")
	}
	if len(c.Currency) != 3 {
		return errors.Errorf("currency %q is not a 3-letter code", c.Currency)
	}
	if c.Pricing.CacheTTL < 0 {
		return errors.Errorf("negative cache ttl %s", c.Pricing.CacheTTL)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT
// (Railway, Render, etc.) onto the LEAGUE_-prefixed configuration.
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
