// Package server is the HTTP transport for interviews, prompt configuration
// and answer generation.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sweetpotato0/bizplan/answer"
	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/metrics"
	"github.com/sweetpotato0/bizplan/prompt"
	"github.com/sweetpotato0/bizplan/session"
	"golang.org/x/sync/errgroup"
)

// Server wires the controllers into a fiber app.
type Server struct {
	app       *fiber.App
	sessions  *session.Manager
	prompts   *prompt.Store
	generator *answer.Generator
	mcp       http.Handler
	origins   string
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPrompts enables the prompt configuration routes.
func WithPrompts(store *prompt.Store) Option {
	return func(s *Server) {
		s.prompts = store
	}
}

// WithGenerator enables POST /generate.
func WithGenerator(g *answer.Generator) Option {
	return func(s *Server) {
		s.generator = g
	}
}

// WithMCP mounts an MCP streamable HTTP handler under /mcp.
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

// WithCORSOrigins sets the allowed origins, comma separated.
func WithCORSOrigins(origins string) Option {
	return func(s *Server) {
		if origins != "" {
			s.origins = origins
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the app. Interview routes are always registered; the rest depend
// on the options given.
func New(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{sessions: sessions, origins: "*"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.WithComponent("server")
	}

	app := fiber.New(fiber.Config{
		AppName:               "bizplan",
		BodyLimit:             4 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(s.logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(otelfiber.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": s.sessions.Count()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	newInterviewController(s.sessions, s.logger).RegisterRoutes(app)
	if s.prompts != nil {
		newPromptController(s.prompts, s.logger).RegisterRoutes(app)
	}
	if s.generator != nil {
		newGenerateController(s.generator, s.logger).RegisterRoutes(app)
	}
	if s.mcp != nil {
		app.All("/mcp", adaptor.HTTPHandler(s.mcp))
	}

	s.app = app
	return s
}

// App returns the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is done, then drains requests and stops
// every interview.
func (s *Server) Run(ctx context.Context, addr string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", "addr", addr)
		return s.app.Listen(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := s.app.ShutdownWithContext(shutdownCtx)
		if serr := s.sessions.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = serr
		}
		s.logger.Info("server stopped", "error", err)
		return err
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// errorPayload is the body of every error response.
type errorPayload struct {
	Error string `json:"error"`
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"

		var fe *fiber.Error
		switch {
		case errors.Is(err, errorskg.ErrInvalidSession):
			code, msg = fiber.StatusNotFound, "Invalid session_id"
		case errors.Is(err, errorskg.ErrInputNotAllowed), errors.Is(err, errorskg.ErrSessionClosed):
			code, msg = fiber.StatusConflict, err.Error()
		case errors.Is(err, errorskg.ErrInvalidInput):
			code, msg = fiber.StatusBadRequest, err.Error()
		case errors.As(err, &fe):
			code, msg = fe.Code, fe.Message
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "path", c.Path(), "request_id", c.GetRespHeader(fiber.HeaderXRequestID), "error", err)
		}
		return c.Status(code).JSON(errorPayload{Error: msg})
	}
}
