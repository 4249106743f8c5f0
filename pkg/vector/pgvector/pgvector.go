// Package pgvector provides a PostgreSQL vector driver using the pgvector
// extension through pgx.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// collectionName restricts names to what maps cleanly onto a table name.
var collectionName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,48}$`)

// Driver implements vector.Driver on PostgreSQL. Each collection is a table
// "docrag_<name>" with an HNSW cosine index.
type Driver struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDriver connects, enables the vector extension and registers its types
// on every pooled connection.
func NewDriver(ctx context.Context, connStr string, logger *slog.Logger) (*Driver, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	// The extension must exist before types can be registered.
	bootstrap, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %w", vector.ErrVectorStore, err)
	}
	_, err = bootstrap.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	bootstrap.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: enabling vector extension: %w", vector.ErrVectorStore, err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %w", vector.ErrVectorStore, err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS docrag_collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL
		)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: creating collections table: %w", vector.ErrVectorStore, err)
	}

	logger.Info("pgvector driver initialized")

	return &Driver{
		pool:   pool,
		logger: logger,
	}, nil
}

// TableName returns the sanitized table identifier for a collection.
func TableName(collection string) string {
	return pgx.Identifier{"docrag_" + collection}.Sanitize()
}

func (d *Driver) dimensions(ctx context.Context, collection string) (uint, error) {
	var dims int32
	err := d.pool.QueryRow(ctx,
		`SELECT dimensions FROM docrag_collections WHERE name = $1`, collection,
	).Scan(&dims)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: looking up collection %s: %w", vector.ErrVectorStore, collection, err)
	}
	return uint(dims), nil
}

// CreateCollection registers the collection and creates its table and index.
func (d *Driver) CreateCollection(ctx context.Context, name string, dimensions uint) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: invalid collection name %q", vector.ErrVectorStore, name)
	}
	if dimensions == 0 {
		return fmt.Errorf("%w: dimensions must be positive", vector.ErrVectorStore)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", vector.ErrVectorStore, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO docrag_collections(name, dimensions) VALUES ($1, $2)`, name, int32(dimensions),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}
	if err != nil {
		return fmt.Errorf("%w: inserting collection: %w", vector.ErrVectorStore, err)
	}

	table := TableName(name)
	index := pgx.Identifier{"docrag_" + name + "_embedding_idx"}.Sanitize()
	nameIndex := pgx.Identifier{"docrag_" + name + "_document_name_idx"}.Sanitize()

	for _, stmt := range []string{
		fmt.Sprintf(`CREATE TABLE %s (
			id UUID PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			text TEXT NOT NULL,
			document_id TEXT NOT NULL,
			document_name TEXT NOT NULL,
			doc_type TEXT NOT NULL
		)`, table, dimensions),
		fmt.Sprintf(`CREATE INDEX %s ON %s USING hnsw (embedding vector_cosine_ops)`, index, table),
		fmt.Sprintf(`CREATE INDEX %s ON %s (document_name text_pattern_ops)`, nameIndex, table),
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: creating collection table: %w", vector.ErrVectorStore, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", vector.ErrVectorStore, err)
	}

	d.logger.Info("created pgvector collection",
		"collection", name,
		"dimensions", dimensions,
	)

	return nil
}

// Upsert writes all points in one batch.
func (d *Driver) Upsert(ctx context.Context, collection string, points []document.Point) error {
	if len(points) == 0 {
		return nil
	}

	dims, err := d.dimensions(ctx, collection)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, text, document_id, document_name, doc_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			text = EXCLUDED.text,
			document_id = EXCLUDED.document_id,
			document_name = EXCLUDED.document_name,
			doc_type = EXCLUDED.doc_type`, TableName(collection))

	batch := &pgx.Batch{}
	for _, p := range points {
		if uint(len(p.Vector)) != dims {
			return fmt.Errorf("%w: got %d, collection %s has %d", vector.ErrDimensionMismatch, len(p.Vector), collection, dims)
		}
		batch.Queue(stmt,
			p.ID, pgv.NewVector(p.Vector),
			p.Payload.Text, p.Payload.DocumentID, p.Payload.DocumentName, p.Payload.DocType,
		)
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: upserting points: %w", vector.ErrVectorStore, err)
	}

	d.logger.Debug("upserted points to pgvector",
		"collection", collection,
		"count", len(points),
	)

	return nil
}

// Search orders by cosine distance and keeps points with similarity at or
// above the threshold.
func (d *Driver) Search(ctx context.Context, collection string, vec []float32, params vector.SearchParams) ([]document.Hit, error) {
	dims, err := d.dimensions(ctx, collection)
	if err != nil {
		return nil, err
	}
	if uint(len(vec)) != dims {
		return nil, fmt.Errorf("%w: got %d, collection %s has %d", vector.ErrDimensionMismatch, len(vec), collection, dims)
	}

	rows, err := d.pool.Query(ctx, fmt.Sprintf(`
		SELECT text, document_id, document_name, doc_type, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`, TableName(collection)),
		pgv.NewVector(vec), params.ScoreThreshold, params.EffectiveLimit(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %w", vector.ErrVectorStore, err)
	}
	defer rows.Close()

	hits := make([]document.Hit, 0)
	for rows.Next() {
		var h document.Hit
		var score float64
		if err := rows.Scan(&h.Payload.Text, &h.Payload.DocumentID, &h.Payload.DocumentName, &h.Payload.DocType, &score); err != nil {
			return nil, fmt.Errorf("%w: scanning query result: %w", vector.ErrVectorStore, err)
		}
		h.Score = float32(score)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query results: %w", vector.ErrVectorStore, err)
	}

	d.logger.Debug("queried pgvector",
		"collection", collection,
		"results", len(hits),
	)

	return hits, nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

var _ vector.Driver = (*Driver)(nil)
