// Package rerankutils builds a configured reranker.
package rerankutils

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/docrag/pkg/rerank"
	"github.com/papercomputeco/docrag/pkg/rerank/cohere"
	"github.com/papercomputeco/docrag/pkg/rerank/tei"
)

type NewRerankerOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Timeout      time.Duration
	Logger       *slog.Logger
}

// NewReranker builds a Reranker for the configured scorer. Provider "none"
// keeps the vector-search order.
func NewReranker(o *NewRerankerOpts) (*rerank.Reranker, error) {
	switch o.ProviderType {
	case "tei":
		return rerank.New(tei.New(o.TargetURL, o.Timeout), o.Logger), nil
	case "cohere":
		return rerank.New(cohere.New(cohere.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			APIKey:  o.APIKey,
			Timeout: o.Timeout,
		}), o.Logger), nil
	case "none", "":
		return rerank.New(nil, o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported reranker provider: %s", o.ProviderType)
	}
}
