// Package config loads runtime settings from configs/.env and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const devJWTSecret = "default_super_secret_key"

// DBConfig holds the postgres connection parts.
type DBConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME" envDefault:"postgres"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// DSN builds a postgres URL, escaping credentials.
func (d DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type Config struct {
	Port    string   `env:"PORT" envDefault:"8080"`
	GinMode string   `env:"GIN_MODE" envDefault:"debug"`
	DB      DBConfig `envPrefix:"DB_"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// PublicBaseURL is the frontend origin used to build approval and login links.
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
	MagicLinkTTL   time.Duration `env:"MAGIC_LINK_TTL" envDefault:"15m"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	PublicRateLimit string        `env:"PUBLIC_RATE_LIMIT" envDefault:"60-M"`
	// TrustedProxies lists proxy IPs/CIDRs whose X-Forwarded-For is believed. Empty means
	// the client IP is always the peer address.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Currency  string `env:"CURRENCY" envDefault:"EUR"`
}

// Load reads configs/.env when present and then the process environment.
func Load() (*Config, error) {
	// A missing file is normal outside local development.
	_ = godotenv.Load("configs/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// Validate fills the development JWT secret and refuses it in release mode.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsRelease() {
			return errors.New("JWT_SECRET is required in release mode")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.IsRelease() && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must not use the development default in release mode")
	}
	if _, err := url.ParseRequestURI(c.PublicBaseURL); err != nil {
		return fmt.Errorf("PUBLIC_BASE_URL: %w", err)
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	if c.SessionTTL <= 0 || c.MagicLinkTTL <= 0 || c.RequestTimeout <= 0 {
		return errors.New("SESSION_TTL, MAGIC_LINK_TTL and REQUEST_TIMEOUT must be positive")
	}
	return nil
}
