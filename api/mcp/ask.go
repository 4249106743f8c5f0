package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docrag/pkg/conversation"
	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/logger"
)

var (
	askToolName    = "ask"
	askDescription = "Ask a question about a document collection. The answer is generated from the most relevant chunks, and follow-up questions in the same session see the earlier exchanges."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Message    string `json:"message" jsonschema:"the question to answer"`
	Collection string `json:"collection,omitempty" jsonschema:"the collection to answer from (default: the configured collection)"`
	SessionID  string `json:"session_id,omitempty" jsonschema:"conversation to continue; omit for a one-off question"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer        string                  `json:"answer"`
	Query         string                  `json:"query"`
	SearchResults []document.SearchResult `json:"search_results"`
}

// handleAsk answers a question, continuing the named session if any.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	l := s.config.Logger
	collection := s.collection(input.Collection)

	if input.Message == "" {
		return toolError("message is required"), AskOutput{}, nil
	}

	l.Debug("MCP ask request",
		"collection", collection,
		"session", input.SessionID,
	)

	// One-off questions get a fresh conversation each time.
	var session *conversation.Manager
	if input.SessionID == "" {
		session = conversation.NewManager(s.config.Sessions.Config())
	} else {
		session = s.config.Sessions.Get(input.SessionID)
	}

	ans, err := s.config.Answerer.Answer(ctx, session, collection, input.Message)
	if err != nil {
		l.Error("failed to answer", logger.Err(err))
		return toolError(fmt.Sprintf("Failed to answer: %v", err)), AskOutput{}, nil
	}

	output := AskOutput{
		Answer:        ans.AIResponse,
		Query:         ans.Query,
		SearchResults: ans.SearchResults,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		l.Error("failed to marshal ask output", logger.Err(err))
		return toolError(fmt.Sprintf("Failed to serialize answer: %v", err)), AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
