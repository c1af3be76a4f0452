// Package config provides configuration management for the gateway relay
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/alexbotov/alidayu/internal/log"
	"github.com/alexbotov/alidayu/pkg/alidayu"
)

// Config holds all configuration for the relay and the CLI
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
	Log      log.Config
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `env:"ALIDAYU_PORT" env-default:"8080" validate:"required,numeric"`
	ReadTimeout  time.Duration `env:"ALIDAYU_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `env:"ALIDAYU_WRITE_TIMEOUT" env-default:"60s"`
}

// DatabaseConfig holds the audit database configuration. An empty DSN
// disables the audit trail.
type DatabaseConfig struct {
	Driver string `env:"ALIDAYU_DB_DRIVER" env-default:"postgres" validate:"required"`
	DSN    string `env:"ALIDAYU_DB_DSN"`
}

// AuthConfig holds relay authentication configuration
type AuthConfig struct {
	JWTSecret   string        `env:"ALIDAYU_JWT_SECRET" validate:"omitempty,min=16"`
	TokenExpiry time.Duration `env:"ALIDAYU_TOKEN_EXPIRY" env-default:"24h"`
}

// GatewayConfig holds the gateway credentials and protocol settings
type GatewayConfig struct {
	AppKey          string        `env:"ALIDAYU_APP_KEY"`
	AppSecret       string        `env:"ALIDAYU_APP_SECRET"`
	Sandbox         bool          `env:"ALIDAYU_SANDBOX" env-default:"false"`
	Format          string        `env:"ALIDAYU_FORMAT" env-default:"json" validate:"oneof=json xml"`
	SignMethod      string        `env:"ALIDAYU_SIGN_METHOD" env-default:"md5" validate:"oneof=md5 hmac"`
	TimeZone        string        `env:"ALIDAYU_TIMEZONE" env-default:"Local"`
	Timeout         time.Duration `env:"ALIDAYU_TIMEOUT" env-default:"30s"`
	RetryCount      int           `env:"ALIDAYU_RETRY_COUNT" env-default:"1" validate:"min=1,max=10"`
	Endpoint        string        `env:"ALIDAYU_ENDPOINT" validate:"omitempty,url"`
	SandboxEndpoint string        `env:"ALIDAYU_SANDBOX_ENDPOINT" validate:"omitempty,url"`
}

var errMissingCredentials = errors.New("ALIDAYU_APP_KEY and ALIDAYU_APP_SECRET are required")

// Validate checks the settings only commands that talk to the gateway need
func (g GatewayConfig) Validate() error {
	if g.AppKey == "" || g.AppSecret == "" {
		return errMissingCredentials
	}
	return nil
}

// ClientConfig maps the gateway section onto the client configuration
func (g GatewayConfig) ClientConfig() (*alidayu.ClientConfig, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(g.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid ALIDAYU_TIMEZONE %q: %w", g.TimeZone, err)
	}

	return &alidayu.ClientConfig{
		AppKey:          g.AppKey,
		AppSecret:       g.AppSecret,
		Sandbox:         g.Sandbox,
		Format:          alidayu.Format(g.Format),
		SignMethod:      alidayu.SignMethod(g.SignMethod),
		Endpoint:        g.Endpoint,
		SandboxEndpoint: g.SandboxEndpoint,
		Location:        location,
		Timeout:         g.Timeout,
		RetryCount:      g.RetryCount,
	}, nil
}

var validate = validator.New()

// Load reads configuration from the environment. When dotenvPath names an
// existing file it is loaded first; variables already set in the process
// environment take precedence over it.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
