package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/kensaku/internal/models"
)

var (
	bucketCollections = []byte("collections")
	bucketPoints      = []byte("points")
	bucketExternal    = []byte("external")
)

// BoltStore persists collections in a bbolt file. Collection metadata lives in the
// "collections" bucket; each collection gets its own top-level bucket holding a
// "points" bucket (point ID -> JSON) and an "external" bucket (external ID -> point ID).
type BoltStore struct {
	db *bbolt.DB
}

type storedCollection struct {
	Dimension int             `json:"dimension"`
	Distance  models.Distance `json:"distance"`
	CreatedAt time.Time       `json:"created_at"`
}

type storedPoint struct {
	Seq        uint64    `json:"seq"`
	ExternalID string    `json:"external_id"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"v"`
}

// NewBoltStore opens or creates the bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create collections bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func collectionBucketName(name string) []byte {
	return []byte("c/" + name)
}

// CollectionExists reports whether name exists.
func (s *BoltStore) CollectionExists(_ context.Context, name string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketCollections).Get([]byte(name)) != nil
		return nil
	})
	return ok, models.NewStoreError("exists", name, err)
}

// CreateCollection creates name unless it already exists.
func (s *BoltStore) CreateCollection(_ context.Context, name string, dimension int, distance models.Distance) (bool, error) {
	if err := validateCollection(name, dimension); err != nil {
		return false, err
	}
	if _, err := Similarity(distance); err != nil {
		return false, err
	}
	created := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketCollections)
		if meta.Get([]byte(name)) != nil {
			return nil
		}
		data, err := json.Marshal(storedCollection{
			Dimension: dimension,
			Distance:  distance,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		b, err := tx.CreateBucket(collectionBucketName(name))
		if err != nil {
			return err
		}
		if _, err := b.CreateBucket(bucketPoints); err != nil {
			return err
		}
		if _, err := b.CreateBucket(bucketExternal); err != nil {
			return err
		}
		if err := meta.Put([]byte(name), data); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, models.NewStoreError("create", name, err)
	}
	return created, nil
}

// DeleteCollection drops name and its buckets.
func (s *BoltStore) DeleteCollection(_ context.Context, name string) (bool, error) {
	deleted := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketCollections)
		if meta.Get([]byte(name)) == nil {
			return nil
		}
		if err := meta.Delete([]byte(name)); err != nil {
			return err
		}
		if err := tx.DeleteBucket(collectionBucketName(name)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, models.NewStoreError("delete", name, err)
	}
	return deleted, nil
}

// ListCollections returns collection names in key order.
func (s *BoltStore) ListCollections(_ context.Context) ([]string, error) {
	names := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, models.NewStoreError("list", "", err)
	}
	return names, nil
}

// DescribeCollection returns metadata for name, or nil if absent.
func (s *BoltStore) DescribeCollection(_ context.Context, name string) (*models.CollectionInfo, error) {
	var info *models.CollectionInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta, err := readCollection(tx, name)
		if err != nil || meta == nil {
			return err
		}
		info = &models.CollectionInfo{
			Name:      name,
			Dimension: meta.Dimension,
			Distance:  meta.Distance,
			CreatedAt: meta.CreatedAt,
		}
		if b := tx.Bucket(collectionBucketName(name)); b != nil {
			info.PointsCount = b.Bucket(bucketPoints).Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return nil, models.NewStoreError("describe", name, err)
	}
	return info, nil
}

// FindByExternalID resolves externalID through the external bucket.
func (s *BoltStore) FindByExternalID(_ context.Context, collection, externalID string) (*models.Point, error) {
	var p *models.Point
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(collectionBucketName(collection))
		if b == nil {
			return models.ErrCollectionNotFound
		}
		id := b.Bucket(bucketExternal).Get([]byte(externalID))
		if id == nil {
			return nil
		}
		data := b.Bucket(bucketPoints).Get(id)
		if data == nil {
			return nil
		}
		var sp storedPoint
		if err := json.Unmarshal(data, &sp); err != nil {
			return err
		}
		p = sp.point(string(id))
		return nil
	})
	if errors.Is(err, models.ErrCollectionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, models.NewStoreError("find", collection, err)
	}
	return p, nil
}

// UpsertPoint writes p, keeping the original insertion sequence when it replaces a point.
func (s *BoltStore) UpsertPoint(_ context.Context, collection string, p *models.Point) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := readCollection(tx, collection)
		if err != nil {
			return err
		}
		b := tx.Bucket(collectionBucketName(collection))
		if meta == nil || b == nil {
			return models.ErrCollectionNotFound
		}
		if err := checkDimension(meta.Dimension, p.Vector); err != nil {
			return err
		}
		points, external := b.Bucket(bucketPoints), b.Bucket(bucketExternal)

		sp := storedPoint{ExternalID: p.Payload.ExternalID, Text: p.Payload.Text, Vector: p.Vector}
		if old := points.Get([]byte(p.ID)); old != nil {
			var prev storedPoint
			if err := json.Unmarshal(old, &prev); err != nil {
				return err
			}
			sp.Seq = prev.Seq
			if prev.ExternalID != sp.ExternalID {
				if err := external.Delete([]byte(prev.ExternalID)); err != nil {
					return err
				}
			}
		} else {
			seq, err := points.NextSequence()
			if err != nil {
				return err
			}
			sp.Seq = seq
		}
		data, err := json.Marshal(sp)
		if err != nil {
			return err
		}
		if err := points.Put([]byte(p.ID), data); err != nil {
			return err
		}
		return external.Put([]byte(sp.ExternalID), []byte(p.ID))
	})
	return models.NewStoreError("upsert", collection, err)
}

// SimilaritySearch scores every point of the collection against vector.
func (s *BoltStore) SimilaritySearch(_ context.Context, collection string, vector []float32, limit int) ([]models.ScoredPoint, error) {
	var cands []candidate
	var seqs []uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta, err := readCollection(tx, collection)
		if err != nil {
			return err
		}
		b := tx.Bucket(collectionBucketName(collection))
		if meta == nil || b == nil {
			return models.ErrCollectionNotFound
		}
		if err := checkDimension(meta.Dimension, vector); err != nil {
			return err
		}
		sim, err := Similarity(meta.Distance)
		if err != nil {
			return err
		}
		return b.Bucket(bucketPoints).ForEach(func(k, v []byte) error {
			var sp storedPoint
			if err := json.Unmarshal(v, &sp); err != nil {
				return err
			}
			p := sp.point(string(k))
			cands = append(cands, candidate{point: p, score: sim(vector, p.Vector)})
			seqs = append(seqs, sp.Seq)
			return nil
		})
	})
	if errors.Is(err, models.ErrCollectionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, models.NewStoreError("search", collection, err)
	}
	if limit <= 0 {
		return []models.ScoredPoint{}, nil
	}
	sortBySeq(cands, seqs)
	return topK(cands, limit), nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func readCollection(tx *bbolt.Tx, name string) (*storedCollection, error) {
	data := tx.Bucket(bucketCollections).Get([]byte(name))
	if data == nil {
		return nil, nil
	}
	var meta storedCollection
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (sp storedPoint) point(id string) *models.Point {
	return &models.Point{
		ID:      id,
		Vector:  sp.Vector,
		Payload: models.Payload{ExternalID: sp.ExternalID, Text: sp.Text},
	}
}

// sortBySeq restores insertion order; bolt iterates points in key order.
func sortBySeq(cands []candidate, seqs []uint64) {
	idx := make([]int, len(cands))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return seqs[idx[a]] < seqs[idx[b]] })
	ordered := make([]candidate, len(cands))
	for i, j := range idx {
		ordered[i] = cands[j]
	}
	copy(cands, ordered)
}
