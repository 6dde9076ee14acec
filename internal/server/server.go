package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wichananm65/users-api/internal/config"
	"github.com/wichananm65/users-api/internal/user"
)

// Server wraps the fiber app serving the users API.
type Server struct {
	app *fiber.App
	cfg config.Config
	log *zap.Logger
}

// New wires middleware, the users routes, /health and /metrics. A nil
// registry gets a fresh one.
func New(cfg config.Config, log *zap.Logger, repo user.Repository, registry *prometheus.Registry) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	app := fiber.New(fiber.Config{
		AppName:               "users-api",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(accessLog(log))
	app.Use(newMetrics(registry).middleware)
	// inside the log and metrics middleware so recovered panics show up in both
	app.Use(fiberrecover.New())
	setupCORS(app, cfg.CORSOrigins)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	userHandler := user.NewHandler(user.NewService(repo), log.Named("user"), user.Options{
		LegacyErrors: cfg.LegacyErrors,
	})
	userHandler.RegisterRoutes(app.Group(cfg.BasePath))

	return &Server{app: app, cfg: cfg, log: log}
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	s.log.Info("starting server", zap.String("addr", s.cfg.Addr), zap.String("basePath", s.cfg.BasePath))
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func setupCORS(app *fiber.App, origins string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		log.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

func accessLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.String("route", c.Route().Path),
			zap.Int("status", statusOf(c, err)),
			zap.Duration("latency", time.Since(start)),
			zap.String("requestId", c.GetRespHeader(fiber.HeaderXRequestID)),
		)
		return err
	}
}

// statusOf predicts the status the error handler will write for err.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
