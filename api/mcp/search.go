package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/utils"
)

var (
	searchToolName    = "search"
	searchDescription = "Search a document collection using semantic search. Returns the most relevant chunks for the query, with the document each came from and a short preview of its text."
)

// previewLength bounds the chunk text returned with each search result.
const previewLength = 200

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the search query text to find relevant document chunks"`
	Collection string `json:"collection,omitempty" jsonschema:"the collection to search (default: the configured collection)"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default: the configured top k); fewer are returned when fewer chunks pass the score threshold"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	document.SearchResult

	Preview string `json:"preview"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query      string         `json:"query"`
	Collection string         `json:"collection"`
	Results    []SearchResult `json:"results"`
	Count      int            `json:"count"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	l := s.config.Logger
	collection := s.collection(input.Collection)

	if input.Query == "" {
		return toolError("query is required"), SearchOutput{}, nil
	}

	l.Debug("MCP search request",
		"query", input.Query,
		"collection", collection,
		"top_k", input.TopK,
	)

	hits, err := s.config.Retriever.Retrieve(ctx, collection, input.Query, input.TopK)
	if err != nil {
		l.Error("failed to search collection", logger.Err(err))
		return toolError(fmt.Sprintf("Failed to search collection: %v", err)), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:      input.Query,
		Collection: collection,
		Results:    buildSearchResults(hits),
		Count:      len(hits),
	}

	// Structured tool output is mirrored as JSON text for clients that only
	// read content blocks.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		l.Error("failed to marshal search output", logger.Err(err))
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func buildSearchResults(hits []document.Hit) []SearchResult {
	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{
			SearchResult: h.Result(),
			Preview:      utils.Preview(h.Payload.Text, previewLength),
		}
	}
	return results
}
