// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/papercomputeco/docrag/pkg/vector"
	"github.com/papercomputeco/docrag/pkg/vector/chroma"
	"github.com/papercomputeco/docrag/pkg/vector/inmemory"
	"github.com/papercomputeco/docrag/pkg/vector/pgvector"
	"github.com/papercomputeco/docrag/pkg/vector/qdrant"
	"github.com/papercomputeco/docrag/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	// ProviderType is one of "qdrant", "memory", "chroma", "sqlite" or "pgvector".
	ProviderType string

	// Target is the provider address: host:port for qdrant, a URL for chroma,
	// a file path for sqlite and a connection string for pgvector.
	Target string

	APIKey string
	UseTLS bool

	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		host, port, err := splitHostPort(o.Target, qdrant.DefaultHost, qdrant.DefaultPort)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:   host,
			Port:   port,
			APIKey: o.APIKey,
			UseTLS: o.UseTLS,
		}, o.Logger)
	case "memory":
		return inmemory.NewDriver(), nil
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL: o.Target,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath: o.Target,
		}, o.Logger)
	case "pgvector":
		return pgvector.NewDriver(ctx, o.Target, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func splitHostPort(target, defaultHost string, defaultPort int) (string, int, error) {
	if target == "" {
		return defaultHost, defaultPort, nil
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// Bare host without a port.
		return target, defaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", target, err)
	}
	if host == "" {
		host = defaultHost
	}
	return host, port, nil
}
