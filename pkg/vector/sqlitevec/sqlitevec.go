// Package sqlitevec provides an embedded SQLite vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec. Each
// collection is a vec0 virtual table (cosine distance) whose rowids match
// rows in the shared points table that carries the payload.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the sqlite-vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

type collectionInfo struct {
	id         int64
	dimensions uint
}

// NewDriver opens the database and creates the bookkeeping tables.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			dimensions INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id INTEGER NOT NULL REFERENCES collections(id),
			point_id TEXT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			document_id TEXT NOT NULL DEFAULT '',
			document_name TEXT NOT NULL DEFAULT '',
			doc_type TEXT NOT NULL DEFAULT '',
			UNIQUE(collection_id, point_id)
		)`,
		`CREATE INDEX IF NOT EXISTS points_document_name ON points(collection_id, document_name)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

func vecTable(id int64) string {
	return fmt.Sprintf("vec_points_%d", id)
}

func (d *Driver) lookup(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, name string) (collectionInfo, error) {
	var info collectionInfo
	err := q.QueryRowContext(ctx,
		`SELECT id, dimensions FROM collections WHERE name = ?`, name,
	).Scan(&info.id, &info.dimensions)
	if errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if err != nil {
		return info, fmt.Errorf("%w: looking up collection %s: %w", vector.ErrVectorStore, name, err)
	}
	return info, nil
}

// CreateCollection registers the collection and creates its vec0 table.
func (d *Driver) CreateCollection(ctx context.Context, name string, dimensions uint) error {
	if dimensions == 0 {
		return fmt.Errorf("%w: sqlite-vec embedding dimensions cannot be 0", vector.ErrVectorStore)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", vector.ErrVectorStore, err)
	}
	defer tx.Rollback()

	if _, err := d.lookup(ctx, tx, name); err == nil {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	} else if !errors.Is(err, vector.ErrCollectionNotFound) {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO collections(name, dimensions) VALUES (?, ?)`, name, dimensions,
	)
	if err != nil {
		return fmt.Errorf("%w: inserting collection: %w", vector.ErrVectorStore, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: getting collection id: %w", vector.ErrVectorStore, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE %s USING vec0(embedding float[%d] distance_metric=cosine)`,
		vecTable(id), dimensions,
	)
	if _, err := tx.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("%w: creating vec0 table: %w", vector.ErrVectorStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", vector.ErrVectorStore, err)
	}

	d.logger.Info("created sqlite-vec collection",
		"collection", name,
		"dimensions", dimensions,
	)

	return nil
}

// Upsert stores points in one transaction. A point whose ID already exists
// in the collection has its payload updated and its embedding replaced.
func (d *Driver) Upsert(ctx context.Context, collection string, points []document.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", vector.ErrVectorStore, err)
	}
	defer tx.Rollback()

	info, err := d.lookup(ctx, tx, collection)
	if err != nil {
		return err
	}
	table := vecTable(info.id)

	for _, p := range points {
		if uint(len(p.Vector)) != info.dimensions {
			return fmt.Errorf("%w: got %d, collection %s has %d", vector.ErrDimensionMismatch, len(p.Vector), collection, info.dimensions)
		}

		blob, err := sqlite_vec.SerializeFloat32(p.Vector)
		if err != nil {
			return fmt.Errorf("%w: serializing embedding for point %s: %w", vector.ErrVectorStore, p.ID, err)
		}

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM points WHERE collection_id = ? AND point_id = ?`, info.id, p.ID.String(),
		).Scan(&rowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE points SET text = ?, document_id = ?, document_name = ?, doc_type = ? WHERE rowid = ?`,
				p.Payload.Text, p.Payload.DocumentID, p.Payload.DocumentName, p.Payload.DocType, rowID,
			); err != nil {
				return fmt.Errorf("%w: updating point %s: %w", vector.ErrVectorStore, p.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, table), rowID,
			); err != nil {
				return fmt.Errorf("%w: deleting old embedding for point %s: %w", vector.ErrVectorStore, p.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO points(collection_id, point_id, text, document_id, document_name, doc_type) VALUES (?, ?, ?, ?, ?, ?)`,
				info.id, p.ID.String(), p.Payload.Text, p.Payload.DocumentID, p.Payload.DocumentName, p.Payload.DocType,
			)
			if err != nil {
				return fmt.Errorf("%w: inserting point %s: %w", vector.ErrVectorStore, p.ID, err)
			}
			rowID, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("%w: getting rowid for point %s: %w", vector.ErrVectorStore, p.ID, err)
			}
		default:
			return fmt.Errorf("%w: checking for existing point %s: %w", vector.ErrVectorStore, p.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, table), rowID, blob,
		); err != nil {
			return fmt.Errorf("%w: inserting embedding for point %s: %w", vector.ErrVectorStore, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", vector.ErrVectorStore, err)
	}

	d.logger.Debug("upserted points to sqlite-vec",
		"collection", collection,
		"count", len(points),
	)

	return nil
}

// Search runs a KNN query and converts cosine distance to similarity.
func (d *Driver) Search(ctx context.Context, collection string, vec []float32, params vector.SearchParams) ([]document.Hit, error) {
	info, err := d.lookup(ctx, d.db, collection)
	if err != nil {
		return nil, err
	}
	if uint(len(vec)) != info.dimensions {
		return nil, fmt.Errorf("%w: got %d, collection %s has %d", vector.ErrDimensionMismatch, len(vec), collection, info.dimensions)
	}

	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing query embedding: %w", vector.ErrVectorStore, err)
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.text, p.document_id, p.document_name, p.doc_type, ve.distance
		FROM %s ve
		INNER JOIN points p ON p.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, vecTable(info.id)), blob, params.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %w", vector.ErrVectorStore, err)
	}
	defer rows.Close()

	hits := make([]document.Hit, 0)
	for rows.Next() {
		var p document.Payload
		var distance float64
		if err := rows.Scan(&p.Text, &p.DocumentID, &p.DocumentName, &p.DocType, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning query result: %w", vector.ErrVectorStore, err)
		}

		score := float32(1 - distance)
		if score < params.ScoreThreshold {
			continue
		}
		hits = append(hits, document.Hit{Payload: p, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query results: %w", vector.ErrVectorStore, err)
	}

	d.logger.Debug("queried sqlite-vec",
		"collection", collection,
		"results", len(hits),
	)

	return hits, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
