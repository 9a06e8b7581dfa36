package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	LogLevel int      `env:"LOG_LEVEL" envDefault:"0"`
	HTTP     HTTP
	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Events   Events   `envPrefix:"EVENTS_"`
	Auth     Auth
}

// HTTP contains HTTP server parameters.
type HTTP struct {
	Addr string `env:"HTTP_ADDR" envDefault:":3000"`
	Mode string `env:"GIN_MODE" envDefault:"release"`
}

// Database contains database connection parameters.
// An empty URL selects the in-memory directory.
type Database struct {
	URL string `env:"URL"`
}

// Redis contains event broker parameters.
// An empty URL selects the in-process pub/sub.
type Redis struct {
	URL string `env:"URL"`
}

// Events contains event publishing parameters.
type Events struct {
	Topic string `env:"TOPIC" envDefault:"tutti.auth"`
}

// Auth contains token and cookie parameters.
type Auth struct {
	JWTSecret    string `env:"JWT_SECRET,required,notEmpty"`
	TokenTTLDays int    `env:"AUTH_COOKIE_EXPIRATION" envDefault:"7"`
	CookieName   string `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	CookieSecure bool   `env:"AUTH_COOKIE_SECURE" envDefault:"true"`
}

// TokenTTL is the lifetime of issued tokens and of the auth cookie.
func (a Auth) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLDays) * 24 * time.Hour
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Auth.TokenTTLDays <= 0 {
		return nil, errors.New("AUTH_COOKIE_EXPIRATION must be a positive number of days")
	}

	return &cfg, nil
}

// LogValue keeps secrets and connection strings out of the logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("log_level", c.LogLevel),
		slog.String("http_addr", c.HTTP.Addr),
		slog.String("gin_mode", c.HTTP.Mode),
		slog.Bool("database", c.Database.URL != ""),
		slog.Bool("redis", c.Redis.URL != ""),
		slog.String("events_topic", c.Events.Topic),
		slog.Int("token_ttl_days", c.Auth.TokenTTLDays),
		slog.String("cookie_name", c.Auth.CookieName),
		slog.Bool("cookie_secure", c.Auth.CookieSecure),
	)
}
