package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kegdev/hearth/internal/logging"
)

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

func (c LogConfig) Logging() logging.Config {
	return logging.Config{Level: c.Level, Format: c.Format}
}

// ServerConfig configures the inventory API server. When OIDCIssuerURL is
// empty the server runs with a fixed development user instead of OIDC.
type ServerConfig struct {
	Port       string `env:"PORT"              envDefault:"8080"`
	DBPath     string `env:"HEARTH_DB_PATH"    envDefault:"hearth.db"`
	AdminEmail string `env:"HEARTH_ADMIN_EMAIL"`
	DevUser    string `env:"HEARTH_DEV_USER"   envDefault:"dev-user"`
	DevEmail   string `env:"HEARTH_DEV_EMAIL"  envDefault:"dev@hearth.local"`

	OIDCIssuerURL    string        `env:"HEARTH_OIDC_ISSUER_URL"`
	OIDCClientID     string        `env:"HEARTH_OIDC_CLIENT_ID"`
	OIDCClientSecret string        `env:"HEARTH_OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string        `env:"HEARTH_OIDC_REDIRECT_URL"`
	SessionKey       string        `env:"HEARTH_SESSION_KEY"`
	SessionTTL       time.Duration `env:"HEARTH_SESSION_TTL"    envDefault:"720h"`
	CookieSecure     bool          `env:"HEARTH_COOKIE_SECURE"  envDefault:"true"`

	Log LogConfig
}

func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

func (c ServerConfig) OIDCEnabled() bool {
	return c.OIDCIssuerURL != ""
}

// ClientConfig configures the command line client and its offline cache.
// Zero durations fall back to the cache defaults.
type ClientConfig struct {
	ServerURL     string `env:"HEARTH_SERVER_URL"     envDefault:"http://localhost:8080"`
	UserID        string `env:"HEARTH_USER_ID"        envDefault:"dev-user"`
	Email         string `env:"HEARTH_EMAIL"          envDefault:"dev@hearth.local"`
	SessionCookie string `env:"HEARTH_SESSION_COOKIE"`

	CacheDriver     string `env:"HEARTH_CACHE_DRIVER"      envDefault:"sqlite"`
	CachePath       string `env:"HEARTH_CACHE_PATH"        envDefault:"hearth-cache.db"`
	CacheQuotaBytes int64  `env:"HEARTH_CACHE_QUOTA_BYTES" envDefault:"10485760"`

	Offline        bool          `env:"HEARTH_OFFLINE"`
	ProbeInterval  time.Duration `env:"HEARTH_PROBE_INTERVAL"  envDefault:"30s"`
	RequestTimeout time.Duration `env:"HEARTH_REQUEST_TIMEOUT" envDefault:"10s"`

	ListTTL           time.Duration `env:"HEARTH_CACHE_LIST_TTL"`
	ProfileTTL        time.Duration `env:"HEARTH_CACHE_PROFILE_TTL"`
	ContainersRecency time.Duration `env:"HEARTH_CACHE_CONTAINERS_RECENCY"`
	ItemsRecency      time.Duration `env:"HEARTH_CACHE_ITEMS_RECENCY"`

	Log LogConfig
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := ParseEnv(&cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	if err := ParseEnv(&cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
