package routes

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/auth"
	"github.com/quickcart/catalog-api/internal/config"
	"github.com/quickcart/catalog-api/internal/metrics"
	"github.com/quickcart/catalog-api/internal/middleware"
	"github.com/quickcart/catalog-api/internal/store"
	apperrors "github.com/quickcart/catalog-api/pkg/errors"
)

// Setup configures all API routes
func Setup(app *fiber.App, cfg *config.Config, logger *logrus.Logger, mw *middleware.Manager, st store.Store, issuer *auth.Issuer) {
	authHandler := NewAuthHandler(st, issuer, logger)
	productHandler := NewProductHandler(st, logger)

	// Operational endpoints, outside the /api prefix and rate limits
	app.Get("/healthz", healthCheck)
	app.Get("/readyz", readinessCheck(st, mw))
	app.Get("/version", versionHandler)
	app.Get(cfg.Observability.MetricsPath, metrics.PrometheusHandler())

	api := app.Group("/api")
	api.Use(metrics.HTTPMetricsMiddleware())
	api.Use(mw.ErrorLogger.Handle())

	// Login attempts share the tightest budget
	authRoutes := api.Group("/auth", mw.RateLimit.Limit(middleware.ClassLogin))
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)

	products := api.Group("/products")

	publicRead := mw.RateLimit.Limit(middleware.ClassPublic)
	authedWrite := mw.RateLimit.Limit(middleware.ClassWrite)

	// /search must register before /:id so it is not captured as an id.
	products.Get("/search", publicRead, productHandler.Search)
	products.Get("/", publicRead, productHandler.List)
	products.Get("/:id", publicRead, productHandler.Get)

	products.Post("/", mw.Auth.RequireAuth(), authedWrite, mw.Idempotency.Handle(), productHandler.Create)
	products.Put("/:id", mw.Auth.RequireAuth(), authedWrite, mw.Idempotency.Handle(), productHandler.Update)
	products.Delete("/:id", mw.Auth.RequireAuth(), authedWrite, productHandler.Delete)

	app.Use(notFoundHandler)
}

// respondError maps any handler failure to its HTTP status and a JSON body
// that never carries the underlying cause.
func respondError(c *fiber.Ctx, logger *logrus.Logger, err error) error {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus() >= 500 {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
	}
	return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
}

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "catalog-api",
	})
}

// readinessCheck reports whether the store (and Redis, when configured) is
// reachable.
func readinessCheck(st store.Store, mw *middleware.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := st.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "not ready",
				"reason":    "store unavailable",
				"timestamp": time.Now().UTC(),
			})
		}

		if mw.RedisClient != nil {
			if err := middleware.RedisHealthCheck(mw.RedisClient, mw.Logger)(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":    "not ready",
					"reason":    "redis unavailable",
					"timestamp": time.Now().UTC(),
				})
			}
		}

		return c.JSON(fiber.Map{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "catalog-api",
		})
	}
}

func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "catalog-api",
		"version": version(),
	})
}

func notFoundHandler(c *fiber.Ctx) error {
	appErr := apperrors.New(apperrors.CodeNotFound, "The requested resource was not found", nil)
	return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
