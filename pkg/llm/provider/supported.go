// Package provider builds llm.Completer clients by provider name.
package provider

import (
	"fmt"
	"os"
	"time"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/docrag/pkg/llm/provider/ollama"
	"github.com/papercomputeco/docrag/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Groq      = "groq"
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Groq, OpenAI, Anthropic, Ollama}
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	BaseURL  string
	Model    string

	// APIKey falls back to the provider's environment variable
	// (GROQ_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY) when empty.
	APIKey string

	Timeout time.Duration
}

// New creates a Completer for the configured provider.
func New(c Config) (llm.Completer, error) {
	switch c.Provider {
	case Groq, "":
		return openai.New(openai.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			APIKey:  apiKey(c.APIKey, "GROQ_API_KEY"),
			Timeout: c.Timeout,
		}), nil
	case OpenAI:
		baseURL := c.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		model := c.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return openai.New(openai.Config{
			BaseURL: baseURL,
			Model:   model,
			APIKey:  apiKey(c.APIKey, "OPENAI_API_KEY"),
			Timeout: c.Timeout,
		}), nil
	case Anthropic:
		return anthropic.New(anthropic.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			APIKey:  apiKey(c.APIKey, "ANTHROPIC_API_KEY"),
			Timeout: c.Timeout,
		}), nil
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", c.Provider, SupportedProviders())
	}
}

func apiKey(explicit, env string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(env)
}
