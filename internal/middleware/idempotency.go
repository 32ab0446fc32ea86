package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/metrics"
	apperrors "github.com/quickcart/catalog-api/pkg/errors"
)

// IdempotencyMiddleware replays cached responses for product writes that
// carry an Idempotency-Key header. The header is optional; requests without
// it pass straight through. Requires a Redis client; without one the
// middleware is a no-op.
type IdempotencyMiddleware struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	ttl         time.Duration
}

type idempotencyRecord struct {
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        string    `json:"body"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewIdempotencyMiddleware(redisClient *redis.Client, logger *logrus.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		redisClient: redisClient,
		logger:      logger,
		ttl:         5 * time.Minute,
	}
}

// Handle caches and replays write responses keyed by Idempotency-Key
func (i *IdempotencyMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" || i.redisClient == nil {
			return c.Next()
		}

		if _, err := uuid.Parse(key); err != nil {
			appErr := apperrors.New(apperrors.CodeBadRequest, "Idempotency-Key must be a valid UUID", nil)
			return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
		}

		ctx := context.Background()
		redisKey := fmt.Sprintf("idempotency:%s", key)
		fingerprint := i.fingerprint(c)

		record, err := i.getRecord(ctx, redisKey)
		if err != nil && err != redis.Nil {
			i.logger.WithError(err).Error("Failed to read idempotency record")
		}

		if record != nil {
			if record.Fingerprint != fingerprint {
				appErr := apperrors.New(apperrors.CodeConflict, "Request differs from the original request with this Idempotency-Key", nil)
				return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
			}

			metrics.RecordIdempotencyHit("hit")
			c.Set("X-Idempotency-Cached", "true")
			if record.ContentType != "" {
				c.Set(fiber.HeaderContentType, record.ContentType)
			}
			return c.Status(record.StatusCode).SendString(record.Body)
		}

		metrics.RecordIdempotencyHit("miss")
		err = c.Next()

		// Only successful responses are worth replaying.
		statusCode := c.Response().StatusCode()
		if err == nil && statusCode >= 200 && statusCode < 300 {
			i.storeRecord(ctx, redisKey, &idempotencyRecord{
				StatusCode:  statusCode,
				ContentType: string(c.Response().Header.ContentType()),
				Body:        string(c.Response().Body()),
				Fingerprint: fingerprint,
				CreatedAt:   time.Now(),
			})
		}

		return err
	}
}

// fingerprint ties a key to one specific request, so reusing the key with a
// different body is detectable.
func (i *IdempotencyMiddleware) fingerprint(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte(":"))
	h.Write([]byte(c.Path()))
	h.Write([]byte(":"))
	h.Write(c.Body())
	h.Write([]byte(":"))
	h.Write([]byte(GetUserID(c)))
	return hex.EncodeToString(h.Sum(nil))
}

func (i *IdempotencyMiddleware) getRecord(ctx context.Context, key string) (*idempotencyRecord, error) {
	data, err := i.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	return &record, nil
}

func (i *IdempotencyMiddleware) storeRecord(ctx context.Context, key string, record *idempotencyRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		i.logger.WithError(err).Error("Failed to marshal idempotency record")
		return
	}
	if err := i.redisClient.Set(ctx, key, data, i.ttl).Err(); err != nil {
		i.logger.WithError(err).Error("Failed to store idempotency record")
	}
}
