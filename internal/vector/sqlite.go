package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kensaku/internal/models"
)

// SQLiteStore persists collections and points in a SQLite database.
// Vectors are stored as little-endian float32 BLOBs and scored by brute force;
// external ID lookups go through an index and never touch vectors.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		distance TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS points (
		collection TEXT NOT NULL,
		point_id TEXT NOT NULL,
		external_id TEXT NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (collection, point_id)
	);

	CREATE INDEX IF NOT EXISTS idx_points_external_id ON points(collection, external_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CollectionExists reports whether name exists.
func (s *SQLiteStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	info, err := s.collectionMeta(ctx, name)
	if err != nil {
		return false, models.NewStoreError("exists", name, err)
	}
	return info != nil, nil
}

// CreateCollection creates name unless it already exists.
func (s *SQLiteStore) CreateCollection(ctx context.Context, name string, dimension int, distance models.Distance) (bool, error) {
	if err := validateCollection(name, dimension); err != nil {
		return false, err
	}
	if _, err := Similarity(distance); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, distance, created_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		name, dimension, string(distance), time.Now().UTC(),
	)
	if err != nil {
		return false, models.NewStoreError("create", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, models.NewStoreError("create", name, err)
	}
	return n == 1, nil
}

// DeleteCollection drops name and all its points in one transaction.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, models.NewStoreError("delete", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return false, models.NewStoreError("delete", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, models.NewStoreError("delete", name, err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE collection = ?`, name); err != nil {
		return false, models.NewStoreError("delete", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, models.NewStoreError("delete", name, err)
	}
	return true, nil
}

// ListCollections returns collection names in creation order.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY rowid`)
	if err != nil {
		return nil, models.NewStoreError("list", "", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, models.NewStoreError("list", "", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStoreError("list", "", err)
	}
	return names, nil
}

// DescribeCollection returns metadata for name, or nil if absent.
func (s *SQLiteStore) DescribeCollection(ctx context.Context, name string) (*models.CollectionInfo, error) {
	info, err := s.collectionMeta(ctx, name)
	if err != nil {
		return nil, models.NewStoreError("describe", name, err)
	}
	if info == nil {
		return nil, nil
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE collection = ?`, name,
	).Scan(&info.PointsCount); err != nil {
		return nil, models.NewStoreError("describe", name, err)
	}
	return info, nil
}

// FindByExternalID returns the point whose payload carries externalID.
func (s *SQLiteStore) FindByExternalID(ctx context.Context, collection, externalID string) (*models.Point, error) {
	info, err := s.collectionMeta(ctx, collection)
	if err != nil {
		return nil, models.NewStoreError("find", collection, err)
	}
	if info == nil {
		return nil, models.ErrCollectionNotFound
	}
	var (
		p    models.Point
		blob []byte
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT point_id, external_id, text, vector FROM points
		 WHERE collection = ? AND external_id = ? LIMIT 1`, collection, externalID,
	).Scan(&p.ID, &p.Payload.ExternalID, &p.Payload.Text, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStoreError("find", collection, err)
	}
	if p.Vector, err = decodeVector(blob); err != nil {
		return nil, models.NewStoreError("find", collection, err)
	}
	return &p, nil
}

// UpsertPoint inserts p or overwrites the point with the same ID.
// The collection lookup and the write share one transaction so a concurrent
// DeleteCollection cannot leave orphaned points behind.
func (s *SQLiteStore) UpsertPoint(ctx context.Context, collection string, p *models.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewStoreError("upsert", collection, err)
	}
	defer func() { _ = tx.Rollback() }()

	info, err := queryCollectionMeta(ctx, tx, collection)
	if err != nil {
		return models.NewStoreError("upsert", collection, err)
	}
	if info == nil {
		return models.NewStoreError("upsert", collection, models.ErrCollectionNotFound)
	}
	if err := checkDimension(info.Dimension, p.Vector); err != nil {
		return models.NewStoreError("upsert", collection, err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO points (collection, point_id, external_id, text, vector)
		 SELECT ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM collections WHERE name = ?)
		 ON CONFLICT(collection, point_id) DO UPDATE SET
		   external_id = excluded.external_id,
		   text = excluded.text,
		   vector = excluded.vector`,
		collection, p.ID, p.Payload.ExternalID, p.Payload.Text, encodeVector(p.Vector), collection,
	)
	if err != nil {
		return models.NewStoreError("upsert", collection, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.NewStoreError("upsert", collection, models.ErrCollectionNotFound)
	}
	return models.NewStoreError("upsert", collection, tx.Commit())
}

// SimilaritySearch scores every point of the collection against vector.
func (s *SQLiteStore) SimilaritySearch(ctx context.Context, collection string, vector []float32, limit int) ([]models.ScoredPoint, error) {
	info, err := s.collectionMeta(ctx, collection)
	if err != nil {
		return nil, models.NewStoreError("search", collection, err)
	}
	if info == nil {
		return nil, models.ErrCollectionNotFound
	}
	if err := checkDimension(info.Dimension, vector); err != nil {
		return nil, models.NewStoreError("search", collection, err)
	}
	if limit <= 0 {
		return []models.ScoredPoint{}, nil
	}
	sim, err := Similarity(info.Distance)
	if err != nil {
		return nil, models.NewStoreError("search", collection, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT point_id, external_id, text, vector FROM points
		 WHERE collection = ? ORDER BY rowid`, collection,
	)
	if err != nil {
		return nil, models.NewStoreError("search", collection, err)
	}
	defer rows.Close()

	var cands []candidate
	for rows.Next() {
		var (
			p    models.Point
			blob []byte
		)
		if err := rows.Scan(&p.ID, &p.Payload.ExternalID, &p.Payload.Text, &blob); err != nil {
			return nil, models.NewStoreError("search", collection, err)
		}
		if p.Vector, err = decodeVector(blob); err != nil {
			return nil, models.NewStoreError("search", collection, err)
		}
		cands = append(cands, candidate{point: &p, score: sim(vector, p.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStoreError("search", collection, err)
	}
	return topK(cands, limit), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) collectionMeta(ctx context.Context, name string) (*models.CollectionInfo, error) {
	return queryCollectionMeta(ctx, s.db, name)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCollectionMeta(ctx context.Context, q rowQuerier, name string) (*models.CollectionInfo, error) {
	var (
		info     models.CollectionInfo
		distance string
	)
	err := q.QueryRowContext(ctx,
		`SELECT name, dimension, distance, created_at FROM collections WHERE name = ?`, name,
	).Scan(&info.Name, &info.Dimension, &distance, &info.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info.Distance = models.Distance(distance)
	return &info, nil
}
