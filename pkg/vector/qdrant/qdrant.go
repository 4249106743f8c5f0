// Package qdrant provides a Qdrant vector database driver over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const (
	// DefaultHost and DefaultPort address a local Qdrant gRPC listener.
	DefaultHost = "localhost"
	DefaultPort = 6334

	// Bounds of the prefix text index on document_name.
	nameIndexMinToken = 2
	nameIndexMaxToken = 256
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// collectionClient is the part of *qdrant.Client the driver uses.
type collectionClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// Driver implements vector.Driver using the Qdrant gRPC client.
type Driver struct {
	client collectionClient
	logger *slog.Logger
}

// NewDriver connects to Qdrant.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %w", vector.ErrVectorStore, err)
	}

	logger.Info("connected to qdrant",
		"host", c.Host,
		"port", c.Port,
		"tls", c.UseTLS,
	)

	return &Driver{
		client: client,
		logger: logger,
	}, nil
}

// CreateCollection creates a cosine collection and a prefix text index on
// the document_name payload field. A collection whose index cannot be built
// is deleted again so that the call can be retried.
func (d *Driver) CreateCollection(ctx context.Context, name string, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return d.wrap(err, name)
	}
	if exists {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return d.wrap(err, name)
	}

	_, err = d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      document.PayloadDocumentName,
		FieldType:      qdrant.FieldType_FieldTypeText.Enum(),
		FieldIndexParams: qdrant.NewPayloadIndexParamsText(&qdrant.TextIndexParams{
			Tokenizer:   qdrant.TokenizerType_Prefix,
			MinTokenLen: qdrant.PtrOf(uint64(nameIndexMinToken)),
			MaxTokenLen: qdrant.PtrOf(uint64(nameIndexMaxToken)),
		}),
	})
	if err != nil {
		if delErr := d.client.DeleteCollection(context.WithoutCancel(ctx), name); delErr != nil {
			d.logger.Warn("removing collection without name index",
				"collection", name,
				"error", delErr,
			)
		}
		return d.wrap(err, name)
	}

	d.logger.Info("created qdrant collection",
		"collection", name,
		"dimensions", dimensions,
	)

	return nil
}

// Upsert writes all points in one request and waits for them to be applied.
func (d *Driver) Upsert(ctx context.Context, collection string, points []document.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := qdrant.TryValueMap(p.Payload.ToMap())
		if err != nil {
			return fmt.Errorf("%w: encoding payload for point %s: %w", vector.ErrVectorStore, p.ID, err)
		}

		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID.String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return d.wrap(err, collection)
	}

	d.logger.Debug("upserted points to qdrant",
		"collection", collection,
		"count", len(points),
	)

	return nil
}

// Search runs a thresholded nearest-neighbor query with payloads.
func (d *Driver) Search(ctx context.Context, collection string, vec []float32, params vector.SearchParams) ([]document.Hit, error) {
	scored, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vec...),
		ScoreThreshold: qdrant.PtrOf(params.ScoreThreshold),
		Limit:          qdrant.PtrOf(uint64(params.EffectiveLimit())),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, d.wrap(err, collection)
	}

	hits := make([]document.Hit, 0, len(scored))
	for _, sp := range scored {
		hits = append(hits, document.Hit{
			Payload: payloadFromValues(sp.GetPayload()),
			Score:   sp.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant",
		"collection", collection,
		"results", len(hits),
	)

	return hits, nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) wrap(err error, collection string) error {
	if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
		return fmt.Errorf("%w: %s: %s", vector.ErrCollectionNotFound, collection, st.Message())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", vector.ErrVectorStore, err)
}

func payloadFromValues(values map[string]*qdrant.Value) document.Payload {
	return document.Payload{
		Text:         values[document.PayloadText].GetStringValue(),
		DocumentID:   values[document.PayloadDocumentID].GetStringValue(),
		DocumentName: values[document.PayloadDocumentName].GetStringValue(),
		DocType:      values[document.PayloadDocType].GetStringValue(),
	}
}

var _ vector.Driver = (*Driver)(nil)
