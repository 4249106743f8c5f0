// Package visionocr recognizes page images with an Ollama-hosted vision model.
package visionocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/extract"
)

const (
	// DefaultModel is the vision model used when none is configured.
	DefaultModel = "llava"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultPrompt asks the model for a verbatim transcription.
	DefaultPrompt = "Transcribe all text in this image exactly as written. Output only the text, with no commentary."
)

// Config configures a Recognizer.
type Config struct {
	BaseURL string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Recognizer implements extract.Recognizer against Ollama's /api/generate.
type Recognizer struct {
	baseURL    string
	model      string
	prompt     string
	httpClient *http.Client
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// New returns a Recognizer, filling defaults for empty fields.
func New(c Config) *Recognizer {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}

	return &Recognizer{
		baseURL:    strings.TrimSuffix(c.BaseURL, "/"),
		model:      c.Model,
		prompt:     c.Prompt,
		httpClient: &http.Client{Timeout: c.Timeout},
	}
}

// Recognize sends img as a base64 PNG and returns the model's transcription.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: encoding page: %w", extract.ErrOCR, err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  r.model,
		Prompt: r.prompt,
		Images: []string{base64.StdEncoding.EncodeToString(buf.Bytes())},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %w", extract.ErrOCR, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", extract.ErrOCR, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %w", extract.ErrOCR, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned status %d: %s", extract.ErrOCR, resp.StatusCode, string(b))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", extract.ErrOCR, err)
	}

	return strings.TrimSpace(out.Response), nil
}

var _ extract.Recognizer = (*Recognizer)(nil)
