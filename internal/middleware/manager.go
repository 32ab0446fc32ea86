package middleware

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/auth"
	"github.com/quickcart/catalog-api/internal/config"
)

// Manager holds all middleware instances
type Manager struct {
	Auth        *AuthMiddleware
	RateLimit   *RateLimitMiddleware
	Idempotency *IdempotencyMiddleware
	ErrorLogger *ErrorLoggerMiddleware
	RedisClient *redis.Client
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewManager wires all middleware. Redis is only dialed when the rate-limit
// backend needs it; with the in-memory backend the idempotency cache is
// disabled and counters stay per-process.
func NewManager(cfg *config.Config, issuer *auth.Issuer, logger *logrus.Logger) (*Manager, error) {
	var redisClient *redis.Client
	var counter Counter

	switch cfg.RateLimit.Backend {
	case "redis":
		client, err := NewRedisClient(&cfg.Redis, &cfg.AWS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		redisClient = client
		counter = NewRedisCounter(client)
	default:
		counter = NewMemoryCounter()
	}

	authMiddleware, err := NewAuthMiddleware(&cfg.JWT, issuer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	return &Manager{
		Auth:        authMiddleware,
		RateLimit:   NewRateLimitMiddleware(&cfg.RateLimit, counter, logger),
		Idempotency: NewIdempotencyMiddleware(redisClient, logger),
		ErrorLogger: NewErrorLoggerMiddleware(logger),
		RedisClient: redisClient,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

// Close closes all middleware resources
func (m *Manager) Close() error {
	if m.RedisClient != nil {
		return m.RedisClient.Close()
	}
	return nil
}
