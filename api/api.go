package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docrag/pkg/conversation"
	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/query"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// Uploader stores documents. Satisfied by *ingest.Uploader.
type Uploader interface {
	Upload(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error)
}

// Answerer runs one chat exchange. Satisfied by *query.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, session *conversation.Manager, collection, message string) (*query.Answer, error)
}

// Deps are the components the server routes to.
type Deps struct {
	Driver   vector.Driver
	Uploader Uploader
	Answerer Answerer
	Sessions *conversation.Store

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server is the docrag HTTP API server.
type Server struct {
	config Config
	deps   Deps
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. Components are injected so the CLI
// and tests can share them.
func NewServer(config Config, deps Deps, l *slog.Logger) (*Server, error) {
	if deps.Driver == nil {
		return nil, errors.New("vector driver is required")
	}
	if deps.Uploader == nil {
		return nil, errors.New("uploader is required")
	}
	if deps.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if deps.Sessions == nil {
		deps.Sessions = conversation.NewStore(conversation.DefaultConfig())
	}
	if config.DefaultSessionID == "" {
		config.DefaultSessionID = "default"
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if l == nil {
		l = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.MaxUploadBytes,
	})

	s := &Server{
		config: config,
		deps:   deps,
		logger: l,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/collections", s.handleCreateCollection)
	v1.Post("/collections/:collection/documents", s.handleUploadDocument)
	v1.Post("/collections/:collection/chat", s.handleChat)
	v1.Get("/sessions/:id", s.handleGetSession)
	v1.Delete("/sessions/:id", s.handleResetSession)

	if deps.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCP))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// HTTPHandler exposes the routes as a net/http handler.
func (s *Server) HTTPHandler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
