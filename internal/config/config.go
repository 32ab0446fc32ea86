package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Store         StoreConfig         `envconfig:"STORE"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	JWT           JWTConfig           `envconfig:"JWT"`
	RateLimit     RateLimitConfig     `envconfig:"RATE_LIMIT"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8000"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	// Prefork runs one worker process per CPU behind a supervising parent
	// that respawns dead children. Workers share no in-process state.
	Prefork bool `envconfig:"PREFORK" default:"false"`
}

type StoreConfig struct {
	// Backend selects the persistence layer: "dynamodb" or "memory".
	Backend string `envconfig:"BACKEND" default:"dynamodb"`
}

type DynamoDBConfig struct {
	UsersTableName    string `envconfig:"USERS_TABLE_NAME"`
	ProductsTableName string `envconfig:"PRODUCTS_TABLE_NAME"`
	Region            string `envconfig:"REGION" default:"ap-northeast-2"`
	// Endpoint overrides the AWS endpoint, e.g. a local DynamoDB.
	Endpoint string `envconfig:"ENDPOINT" default:""`
}

type RedisConfig struct {
	Address             string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password            string        `envconfig:"PASSWORD" default:""`
	Database            int           `envconfig:"DATABASE" default:"0"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize            int           `envconfig:"POOL_SIZE" default:"100"`
	PoolTimeout         time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled          bool          `envconfig:"TLS_ENABLED" default:"false"`
	PasswordFromSecrets bool          `envconfig:"PASSWORD_FROM_SECRETS" default:"false"`
}

type JWTConfig struct {
	// Secret signs self-issued HS256 tokens. Required unless a JWKS
	// endpoint is configured for externally issued tokens.
	Secret       string        `envconfig:"SECRET" default:""`
	TTL          time.Duration `envconfig:"TTL" default:"1h"`
	Issuer       string        `envconfig:"ISSUER" default:"catalog-api"`
	Audience     string        `envconfig:"AUDIENCE" default:"catalog-clients"`
	JWKSEndpoint string        `envconfig:"JWKS_ENDPOINT" default:""`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

// RateLimitConfig carries one fixed window per route class, each keyed by
// client IP and counted independently.
type RateLimitConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`
	// Backend selects the counter store: "memory" (per-process) or
	// "redis" (shared across workers).
	Backend string `envconfig:"BACKEND" default:"memory"`

	PublicLimit  int           `envconfig:"PUBLIC_LIMIT" default:"300"`
	PublicWindow time.Duration `envconfig:"PUBLIC_WINDOW" default:"10m"`
	WriteLimit   int           `envconfig:"WRITE_LIMIT" default:"100"`
	WriteWindow  time.Duration `envconfig:"WRITE_WINDOW" default:"30m"`
	LoginLimit   int           `envconfig:"LOGIN_LIMIT" default:"10"`
	LoginWindow  time.Duration `envconfig:"LOGIN_WINDOW" default:"10m"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"false"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type AWSConfig struct {
	Region     string `envconfig:"REGION" default:"ap-northeast-2"`
	Profile    string `envconfig:"PROFILE" default:""`
	SecretName string `envconfig:"SECRET_NAME" default:""`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	// Without a verification key every protected route would fail per
	// request. Refuse to start instead.
	if cfg.JWT.Secret == "" && cfg.JWT.JWKSEndpoint == "" {
		return fmt.Errorf("JWT_SECRET is required when no JWT_JWKS_ENDPOINT is configured")
	}

	switch cfg.Store.Backend {
	case "memory":
	case "dynamodb":
		if cfg.DynamoDB.UsersTableName == "" || cfg.DynamoDB.ProductsTableName == "" {
			return fmt.Errorf("DYNAMODB_USERS_TABLE_NAME and DYNAMODB_PRODUCTS_TABLE_NAME are required for the dynamodb store backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s", cfg.Store.Backend)
	}

	if cfg.RateLimit.Backend != "memory" && cfg.RateLimit.Backend != "redis" {
		return fmt.Errorf("invalid rate limit backend: %s", cfg.RateLimit.Backend)
	}

	for _, rl := range []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"public", cfg.RateLimit.PublicLimit, cfg.RateLimit.PublicWindow},
		{"write", cfg.RateLimit.WriteLimit, cfg.RateLimit.WriteWindow},
		{"login", cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow},
	} {
		if rl.limit < 1 {
			return fmt.Errorf("invalid %s rate limit: %d", rl.name, rl.limit)
		}
		if rl.window <= 0 {
			return fmt.Errorf("invalid %s rate window: %s", rl.name, rl.window)
		}
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	return nil
}
