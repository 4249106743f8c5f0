package credentials

import "time"

// Credentials is the layout of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential is one stored provider key.
type ProviderCredential struct {
	APIKey    string    `toml:"api_key"`
	UpdatedAt time.Time `toml:"updated_at,omitempty"`
}

// Source says where a resolved key came from.
type Source string

const (
	SourceNone     Source = ""
	SourceExplicit Source = "config"
	SourceEnv      Source = "env"
	SourceStored   Source = "stored"
)

// Key is a resolved provider key.
type Key struct {
	Provider string
	Value    string
	Source   Source

	// EnvVar is the provider's environment variable, set for every
	// supported provider whatever the source.
	EnvVar string

	// UpdatedAt is when a stored key was written.
	UpdatedAt time.Time
}

// provider describes a provider that takes an API key.
type provider struct {
	envVar string

	// uses lists the config sections the key is used for.
	uses []string
}
