// Package anthropic implements llm.Completer for the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/llm"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-haiku-4-5-20251001"

	// defaultMaxTokens is sent when the caller sets none; the API requires it.
	defaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Config configures a Completer.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Completer calls {BaseURL}/v1/messages.
type Completer struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates a Completer, filling defaults for empty fields.
func New(c Config) *Completer {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	return &Completer{
		baseURL:    strings.TrimRight(c.BaseURL, "/"),
		model:      c.Model,
		apiKey:     c.APIKey,
		httpClient: &http.Client{Timeout: c.Timeout},
	}
}

// Complete sends system messages as the top-level system prompt and the rest
// as the message list, returning the concatenated text blocks.
func (c *Completer) Complete(ctx context.Context, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	var system []string
	msgs := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, m)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	data, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      strings.Join(system, "\n\n"),
		Messages:    msgs,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", llm.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", llm.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic request: %w", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", llm.ErrCompletion, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: anthropic API error (status %d): %s", llm.ErrCompletion, resp.StatusCode, string(body))
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", llm.ErrCompletion, err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%w: anthropic error: %s", llm.ErrCompletion, result.Error.Message)
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic returned no content", llm.ErrCompletion)
	}

	return text.String(), nil
}

var _ llm.Completer = (*Completer)(nil)
