package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/logger"
)

// DefaultPath is the config file read when CONFIG_PATH is unset.
const DefaultPath = "config.yml"

// ErrRequired marks a missing mandatory setting.
var ErrRequired = errors.New("field is required")

// Config is the full client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging logger.Config `yaml:"logging"`
}

// APIConfig points the client at the dashboard API.
type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL" yaml:"base_url"`
	Token   string        `env:"API_TOKEN"    yaml:"token"`
	Timeout time.Duration `env:"API_TIMEOUT"  yaml:"timeout"`
}

// AuthConfig selects dynamic token sources. The static API token is the fallback.
type AuthConfig struct {
	JWTSecret  string      `env:"AUTH_JWT_SECRET"  yaml:"jwt_secret"`
	JWTSubject string      `env:"AUTH_JWT_SUBJECT" yaml:"jwt_subject"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig locates a token published to Redis by the session service.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"   yaml:"address"`
	Password string `env:"REDIS_PASSWORD"  yaml:"password"`
	DB       int    `env:"REDIS_DB"        yaml:"db"`
	TokenKey string `env:"REDIS_TOKEN_KEY" yaml:"token_key"`
}

// ValidationError reports an invalid setting.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Load reads path (missing file allowed), applies env overrides and defaults, and validates.
func Load(path string) (*Config, error) {
	cfg, err := LoadFileOptional[Config](path)
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.Auth.JWTSubject == "" {
		c.Auth.JWTSubject = "marketbrewer-dashboard"
	}
	if c.Auth.Redis.TokenKey == "" {
		c.Auth.Redis.TokenKey = "dashboard:api_token"
	}
	c.Logging.SetDefaults()
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return &ValidationError{Field: "api.base_url", Message: "is required", Err: ErrRequired}
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "api.base_url", Message: "must be an absolute http(s) URL"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error"}
	}
	return nil
}
