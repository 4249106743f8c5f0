// Package mcp provides an MCP (Model Context Protocol) server exposing
// document search and question answering over docrag collections.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docrag/pkg/conversation"
	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/query"
	"github.com/papercomputeco/docrag/pkg/utils"
)

// Retriever finds the chunks most relevant to a query. Satisfied by
// *query.Pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, collection, q string, topK int) ([]document.Hit, error)
}

// Answerer runs one chat exchange. Satisfied by *query.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, session *conversation.Manager, collection, message string) (*query.Answer, error)
}

type Config struct {
	// Retriever backs the search tool
	Retriever Retriever

	// Answerer backs the ask tool
	Answerer Answerer

	// Sessions holds the conversations the ask tool continues
	Sessions *conversation.Store

	// DefaultCollection is used when a tool call names no collection
	DefaultCollection string

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the search and ask tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "docrag",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		s.mcpServer = mcpServer
		s.handler = newHandler(mcpServer)
		return s, nil
	}

	if c.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if c.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if s.config.Sessions == nil {
		s.config.Sessions = conversation.NewStore(conversation.DefaultConfig())
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	s.mcpServer = mcpServer
	s.handler = newHandler(mcpServer)

	return s, nil
}

// newHandler wraps server in a stateless streamable HTTP handler.
func newHandler(server *mcp.Server) *mcp.StreamableHTTPHandler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return server
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) collection(name string) string {
	if name != "" {
		return name
	}
	return s.config.DefaultCollection
}

func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
