package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorLoggerMiddleware struct {
	logger *logrus.Logger
}

func NewErrorLoggerMiddleware(logger *logrus.Logger) *ErrorLoggerMiddleware {
	return &ErrorLoggerMiddleware{logger: logger}
}

// Handle logs 4xx and 5xx responses with request context
func (e *ErrorLoggerMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()
		if statusCode < 400 {
			return err
		}

		fields := logrus.Fields{
			"status_code": statusCode,
			"method":      c.Method(),
			"path":        c.Path(),
			"ip":          c.IP(),
			"request_id":  c.Get("X-Request-ID"),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if userID := GetUserID(c); userID != "" {
			fields["user_id"] = userID
		}
		if query := c.Request().URI().QueryString(); len(query) > 0 {
			fields["query"] = string(query)
		}

		entry := e.logger.WithFields(fields)
		if statusCode >= 500 {
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Error("Server error response")
		} else {
			entry.Warn("Client error response")
		}

		return err
	}
}
