package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` name the environment variable,
// `default:""` supplies a fallback and `required:"true"` makes it mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	Auth       AuthConfig
	Search     SearchConfig
	LoginLimit RateLimitConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port           string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite   time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	RequestTimeout time.Duration `envconfig:"HTTP_SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host            string        `envconfig:"POSTGRES_HOST" required:"true"`
	Port            string        `envconfig:"POSTGRES_PORT" default:"5432"`
	User            string        `envconfig:"POSTGRES_USER" required:"true"`
	Password        string        `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName          string        `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode         string        `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"30m"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	SecretKey                string `envconfig:"AUTH_SECRET_KEY" required:"true"`
	Algorithm                string `envconfig:"AUTH_ALGORITHM" default:"HS256"`
	AccessTokenExpireMinutes int    `envconfig:"AUTH_ACCESS_TOKEN_EXPIRE_MINUTES" default:"30"`
	RefreshTokenExpireDays   int    `envconfig:"AUTH_REFRESH_TOKEN_EXPIRE_DAYS" default:"7"`
}

// AccessTTL is the lifetime of access tokens.
func (ac AuthConfig) AccessTTL() time.Duration {
	return time.Duration(ac.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTTL is the lifetime of refresh tokens.
func (ac AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(ac.RefreshTokenExpireDays) * 24 * time.Hour
}

// SearchConfig names the two PostgreSQL text search configurations used to
// rank product search results.
type SearchConfig struct {
	PrimaryLanguage   string `envconfig:"SEARCH_PRIMARY_LANGUAGE" default:"english"`
	SecondaryLanguage string `envconfig:"SEARCH_SECONDARY_LANGUAGE" default:"russian"`
}

// RateLimitConfig bounds login attempts per client IP.
type RateLimitConfig struct {
	PerSecond float64       `envconfig:"LOGIN_RATE_PER_SECOND" default:"1"`
	Burst     int           `envconfig:"LOGIN_RATE_BURST" default:"5"`
	TTL       time.Duration `envconfig:"LOGIN_RATE_TTL" default:"10m"`
}

var supportedAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}

// Validate checks values envconfig cannot express with tags.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return errors.New("AUTH_SECRET_KEY must not be empty")
	}
	if !supportedAlgorithms[strings.ToUpper(c.Auth.Algorithm)] {
		return fmt.Errorf("unsupported AUTH_ALGORITHM %q: only HMAC algorithms are allowed", c.Auth.Algorithm)
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 || c.Auth.RefreshTokenExpireDays <= 0 {
		return errors.New("token expiry values must be positive")
	}
	if c.Search.PrimaryLanguage == "" || c.Search.SecondaryLanguage == "" {
		return errors.New("both search languages must be set")
	}
	return nil
}

// Load reads an optional .env file, then populates the configuration from
// environment variables. It should be called once during startup.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set another way.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	cfg.Auth.Algorithm = strings.ToUpper(cfg.Auth.Algorithm)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
