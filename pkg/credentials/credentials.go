// Package credentials stores provider API keys in credentials.toml inside the
// .docrag/ directory and resolves the key each provider should use.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/docrag/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

var providers = map[string]provider{
	"anthropic": {envVar: "ANTHROPIC_API_KEY", uses: []string{"llm"}},
	"cohere":    {envVar: "COHERE_API_KEY", uses: []string{"reranker"}},
	"groq":      {envVar: "GROQ_API_KEY", uses: []string{"llm"}},
	"openai":    {envVar: "OPENAI_API_KEY", uses: []string{"llm", "embedding"}},
}

// now is replaced in tests.
var now = time.Now

// Manager reads and writes credentials.toml.
type Manager struct {
	targetPath string
}

// NewManager creates a Manager for the .docrag/ directory resolved from
// override.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: filepath.Join(target, credentialsFile)}, nil
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save writes creds with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// update applies fn to the stored credentials and saves them.
func (m *Manager) update(fn func(map[string]ProviderCredential)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds.Providers)
	return m.Save(creds)
}

// SetKey stores key for provider.
func (m *Manager) SetKey(provider, key string) error {
	return m.update(func(p map[string]ProviderCredential) {
		p[provider] = ProviderCredential{APIKey: key, UpdatedAt: now().UTC().Truncate(time.Second)}
	})
}

// RemoveKey deletes provider's stored key. Removing a missing key is not an
// error.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(p map[string]ProviderCredential) {
		delete(p, provider)
	})
}

// GetKey returns the stored key for provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// Lookup resolves provider's key: explicit wins, then the provider's
// environment variable, then the stored key.
func (m *Manager) Lookup(provider, explicit string) (Key, error) {
	key := Key{Provider: provider, EnvVar: EnvVarForProvider(provider)}

	if explicit != "" {
		key.Value, key.Source = explicit, SourceExplicit
		return key, nil
	}
	if key.EnvVar != "" {
		if v := os.Getenv(key.EnvVar); v != "" {
			key.Value, key.Source = v, SourceEnv
			return key, nil
		}
	}

	creds, err := m.Load()
	if err != nil {
		return key, err
	}
	if pc, ok := creds.Providers[provider]; ok && pc.APIKey != "" {
		key.Value, key.Source, key.UpdatedAt = pc.APIKey, SourceStored, pc.UpdatedAt
	}
	return key, nil
}

// Resolve returns the key Lookup picks.
func (m *Manager) Resolve(provider, explicit string) (string, error) {
	key, err := m.Lookup(provider, explicit)
	return key.Value, err
}

// ListProviders returns the providers with stored keys, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(creds.Providers)), nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForProvider returns provider's environment variable, or "" for
// providers that take no key.
func EnvVarForProvider(provider string) string {
	return providers[provider].envVar
}

// UsesForProvider returns the config sections provider's key serves.
func UsesForProvider(provider string) []string {
	return providers[provider].uses
}

// SupportedProviders returns the providers that take an API key, sorted.
func SupportedProviders() []string {
	return slices.Sorted(maps.Keys(providers))
}

// IsSupportedProvider reports whether provider takes an API key.
func IsSupportedProvider(provider string) bool {
	_, ok := providers[provider]
	return ok
}
