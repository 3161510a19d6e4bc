package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/config"
	"github.com/scanearn/coinvault/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
	bg  *routes.Background
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, deps routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    8 << 20,
		ErrorHandler: ErrorHandler(deps.Logger),
	})

	bg, err := routes.Setup(app, deps)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, bg: bg}, nil
}

// ErrorHandler renders errors as {"error","kind"} with the status of their kind.
// Fiber errors keep their own status.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		status := apperror.Status(err)
		kind := apperror.KindOf(err)
		if status >= fiber.StatusInternalServerError && logger != nil {
			logger.Error("request failed",
				slog.String("path", c.Path()),
				slog.String("kind", string(kind)),
				slog.Any("error", err),
			)
		}
		msg := err.Error()
		if kind == apperror.KindBackendUnavailable {
			msg = apperror.ErrBackendUnavailable.Message
		}
		return c.Status(status).JSON(fiber.Map{"error": msg, "kind": kind})
	}
}

// App exposes the Fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start launches background workers bound to ctx.
func (s *Server) Start(ctx context.Context) {
	s.bg.Start(ctx)
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
