package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/config"
	"github.com/quickcart/catalog-api/internal/metrics"
	apperrors "github.com/quickcart/catalog-api/pkg/errors"
)

// RateClass identifies one independently configured request budget.
type RateClass string

const (
	ClassPublic RateClass = "public" // unauthenticated catalog reads
	ClassWrite  RateClass = "write"  // authenticated catalog writes
	ClassLogin  RateClass = "login"  // register/login attempts
)

// RateLimitMiddleware enforces per-IP fixed-window caps, one counter per
// (client IP, route class). Windows reset at the boundary, not rolling.
type RateLimitMiddleware struct {
	config  *config.RateLimitConfig
	counter Counter
	logger  *logrus.Logger
}

func NewRateLimitMiddleware(cfg *config.RateLimitConfig, counter Counter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		config:  cfg,
		counter: counter,
		logger:  logger,
	}
}

// Limit returns a handler enforcing the budget of the given class
func (r *RateLimitMiddleware) Limit(class RateClass) fiber.Handler {
	limit, window := r.classBudget(class)

	return func(c *fiber.Ctx) error {
		if !r.config.Enabled {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", class, r.clientIP(c))

		count, resetAt, err := r.counter.Incr(c.Context(), key, window)
		if err != nil {
			// Fail open: a broken counter backend must not block traffic.
			r.logger.WithError(err).Error("Rate limit check failed")
			return c.Next()
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		r.setRateLimitHeaders(c, limit, remaining, resetAt)

		if count > int64(limit) {
			r.logger.WithFields(logrus.Fields{
				"key":    key,
				"class":  string(class),
				"path":   c.Path(),
				"method": c.Method(),
			}).Warn("Rate limit exceeded")
			metrics.RecordRateLimitDrop(string(class))

			return r.rateLimitError(c)
		}

		return c.Next()
	}
}

func (r *RateLimitMiddleware) classBudget(class RateClass) (int, time.Duration) {
	switch class {
	case ClassWrite:
		return r.config.WriteLimit, r.config.WriteWindow
	case ClassLogin:
		return r.config.LoginLimit, r.config.LoginWindow
	default:
		return r.config.PublicLimit, r.config.PublicWindow
	}
}

// clientIP extracts the real client IP, preferring load balancer headers
func (r *RateLimitMiddleware) clientIP(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return c.IP()
}

func (r *RateLimitMiddleware) setRateLimitHeaders(c *fiber.Ctx, limit int, remaining int64, resetAt time.Time) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

	if remaining <= 0 {
		retryAfter := int(time.Until(resetAt).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set("Retry-After", strconv.Itoa(retryAfter))
	}
}

func (r *RateLimitMiddleware) rateLimitError(c *fiber.Ctx) error {
	appErr := apperrors.New(apperrors.CodeRateLimited, "Rate limit exceeded. Please try again later.", nil)
	return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
}
