package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docrag/pkg/conversation"
	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/query"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a request that returns nothing else.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateCollectionRequest is the body of POST /v1/collections.
type CreateCollectionRequest struct {
	Name       string `json:"name"`
	VectorSize uint   `json:"vector_size"`
}

// UploadResponse is returned for a stored document.
type UploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// ChatRequest is the body of POST /v1/collections/:collection/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse carries the answer and the chunks it was grounded on.
type ChatResponse struct {
	AIResponse    string                  `json:"ai_response"`
	SearchResults []document.SearchResult `json:"search_results"`
}

// SessionResponse lists a session's turns, system turn first.
type SessionResponse struct {
	SessionID string              `json:"session_id"`
	Turns     []conversation.Turn `json:"turns"`
}

const errProcessDocument = "failed to process the document"

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleCreateCollection(c *fiber.Ctx) error {
	var req CreateCollectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name is required"})
	}

	size := req.VectorSize
	if size == 0 {
		size = s.config.VectorSize
	}
	if size == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "vector_size is required"})
	}

	if err := s.deps.Driver.CreateCollection(c.UserContext(), req.Name, size); err != nil {
		return s.fail(c, err, "failed to create collection")
	}

	s.logger.Info("collection created", "collection", req.Name, "vector_size", size)

	return c.Status(fiber.StatusCreated).JSON(MessageResponse{
		Message: fmt.Sprintf("Collection %s created successfully", req.Name),
	})
}

func (s *Server) handleUploadDocument(c *fiber.Ctx) error {
	collection := c.Params("collection")

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file is required"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "could not open uploaded file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "could not read uploaded file"})
	}

	name := c.FormValue("name")
	if name == "" {
		name = fh.Filename
	}

	res, err := s.deps.Uploader.Upload(c.UserContext(), ingest.UploadRequest{
		Collection: collection,
		Name:       name,
		DocType:    c.FormValue("doc_type"),
		Data:       data,
	})
	if err != nil {
		return s.fail(c, err, errProcessDocument)
	}

	return c.JSON(UploadResponse{
		Message:    fmt.Sprintf("Document %s uploaded successfully", name),
		DocumentID: res.DocumentID.String(),
		Chunks:     res.Chunks,
	})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.config.DefaultSessionID
	}

	ans, err := s.deps.Answerer.Answer(c.UserContext(), s.deps.Sessions.Get(sessionID), c.Params("collection"), req.Message)
	if err != nil {
		return s.fail(c, err, "failed to answer")
	}

	return c.JSON(ChatResponse{
		AIResponse:    ans.AIResponse,
		SearchResults: ans.SearchResults,
	})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	m, ok := s.deps.Sessions.Lookup(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
	}

	return c.JSON(SessionResponse{SessionID: id, Turns: m.Turns()})
}

func (s *Server) handleResetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	s.deps.Sessions.Reset(id)

	return c.JSON(MessageResponse{Message: fmt.Sprintf("Session %s reset", id)})
}

// fail maps err to a status code and logs it. Upstream failures get a
// generic message; client errors echo the cause.
func (s *Server) fail(c *fiber.Ctx, err error, msg string) error {
	status := statusFor(err)

	s.logger.Error(msg,
		"path", c.Path(),
		"status", status,
		logger.Err(err),
	)

	switch status {
	case fiber.StatusNotFound, fiber.StatusConflict:
		msg = err.Error()
	}

	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrNoContent):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, vector.ErrCollectionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, vector.ErrCollectionExists):
		return fiber.StatusConflict
	case errors.Is(err, vector.ErrDimensionMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, query.ErrEmbedding),
		errors.Is(err, query.ErrVectorStore),
		errors.Is(err, query.ErrRerank),
		errors.Is(err, query.ErrGeneration):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
