package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Redis   RedisConfig
	Session SessionConfig
	Catalog CatalogConfig
	Media   MediaConfig
	CORS    CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points at the shop REST API every storefront call goes to.
type BackendConfig struct {
	BaseURL       string        `envconfig:"STOREFRONT_API_URL" default:"http://localhost:3000"`
	Timeout       time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"10s"`
	RetryMaxTries uint          `envconfig:"STOREFRONT_API_RETRY_MAX_TRIES" default:"3"`
}

func (b BackendConfig) validate() error {
	parsed, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvAPIURL, b.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", EnvAPIURL)
	}
	return nil
}

// RedisConfig is optional; without a URL or address client storage stays in memory.
type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SessionConfig struct {
	CookieName   string        `envconfig:"STOREFRONT_CLIENT_COOKIE" default:"sf_client"`
	CookieSecure bool          `envconfig:"STOREFRONT_CLIENT_COOKIE_SECURE" default:"false"`
	IdleTTL      time.Duration `envconfig:"STOREFRONT_CLIENT_IDLE_TTL" default:"30m"`
	StorageTTL   time.Duration `envconfig:"STOREFRONT_STORAGE_TTL" default:"720h"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"STOREFRONT_CATALOG_CACHE_TTL" default:"30s"`
}

type MediaConfig struct {
	MaxImageMB int64 `envconfig:"STOREFRONT_MEDIA_MAX_IMAGE_MB" default:"10"`
}

// MaxImageBytes converts the configured ceiling to bytes.
func (m MediaConfig) MaxImageBytes() int64 {
	if m.MaxImageMB <= 0 {
		return 0
	}
	return m.MaxImageMB * 1024 * 1024
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
}
