// Package client is a small HTTP client for the docrag API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/api"
)

// DefaultTimeout bounds a single request. Uploads run the whole ingestion
// pipeline server side, so it is generous.
const DefaultTimeout = 5 * time.Minute

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client talks to a docrag API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var out string
	return c.do(ctx, http.MethodGet, "/ping", nil, "", &out)
}

// CreateCollection creates a collection. A zero vectorSize uses the
// server's embedding dimensions.
func (c *Client) CreateCollection(ctx context.Context, name string, vectorSize uint) (*api.MessageResponse, error) {
	body, err := json.Marshal(api.CreateCollectionRequest{Name: name, VectorSize: vectorSize})
	if err != nil {
		return nil, err
	}

	out := &api.MessageResponse{}
	if err := c.do(ctx, http.MethodPost, "/v1/collections", bytes.NewReader(body), "application/json", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends a document for ingestion into collection.
func (c *Client) Upload(ctx context.Context, collection, name, docType string, data io.Reader) (*api.UploadResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if docType != "" {
		if err := w.WriteField("doc_type", docType); err != nil {
			return nil, err
		}
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	out := &api.UploadResponse{}
	path := "/v1/collections/" + url.PathEscape(collection) + "/documents"
	if err := c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Chat sends one message in sessionID's conversation.
func (c *Client) Chat(ctx context.Context, collection, sessionID, message string) (*api.ChatResponse, error) {
	body, err := json.Marshal(api.ChatRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return nil, err
	}

	out := &api.ChatResponse{}
	path := "/v1/collections/" + url.PathEscape(collection) + "/chat"
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Session fetches a session's turns.
func (c *Client) Session(ctx context.Context, id string) (*api.SessionResponse, error) {
	out := &api.SessionResponse{}
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetSession returns a session to its system turn.
func (c *Client) ResetSession(ctx context.Context, id string) error {
	out := &api.MessageResponse{}
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e api.ErrorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			return &Error{StatusCode: resp.StatusCode, Message: e.Error}
		}
		return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
