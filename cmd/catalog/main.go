package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/quickcart/catalog-api/internal/auth"
	"github.com/quickcart/catalog-api/internal/config"
	"github.com/quickcart/catalog-api/internal/logging"
	"github.com/quickcart/catalog-api/internal/metrics"
	"github.com/quickcart/catalog-api/internal/middleware"
	"github.com/quickcart/catalog-api/internal/routes"
	"github.com/quickcart/catalog-api/internal/store"
)

func main() {
	// Local development reads a .env file; in deployments the file is absent
	// and the environment is already populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg)

	if err := metrics.Init(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize metrics")
	}

	tracingShutdown, err := middleware.InitTracing(&cfg.Observability, cfg.Server.Environment, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracing")
		}
	}()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	app := fiber.New(fiber.Config{
		AppName: "Catalog API",
		// Prefork runs one worker process per CPU; the parent respawns any
		// worker that dies, so one crashing request cannot take the
		// service down.
		Prefork:      cfg.Server.Prefork,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			}).Error("Request error")

			// The underlying error never reaches the client.
			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":     "INTERNAL_ERROR",
					"message":  "Internal server error",
					"trace_id": c.Get("X-Request-ID"),
				},
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Requested-With,Idempotency-Key,X-Request-ID",
		MaxAge:       86400,
	}))
	app.Use(otelfiber.Middleware())

	// pprof for profiling (accessible at /debug/pprof/)
	app.Use(pprof.New())

	issuer := auth.NewIssuer(&cfg.JWT)

	middlewareManager, err := middleware.NewManager(cfg, issuer, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize middleware manager")
	}
	defer func() {
		if err := middlewareManager.Close(); err != nil {
			logger.WithError(err).Error("Failed to close middleware manager")
		}
	}()

	st, err := newStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}

	routes.Setup(app, cfg, logger, middlewareManager, st, issuer)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Gracefully shutting down...")
		if err := app.Shutdown(); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"prefork": cfg.Server.Prefork,
		"store":   cfg.Store.Backend,
	}).Info("Starting Catalog API server")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}

func newStore(cfg *config.Config, logger *logrus.Logger) (store.Store, error) {
	if cfg.Store.Backend == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart and not shared between workers")
		return store.NewMemoryStore(), nil
	}
	return store.NewDynamoStore(context.Background(), cfg, logger)
}
