package vector

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/kensaku/internal/models"
)

// MemoryStore keeps collections in process memory using brute-force similarity search.
// Suitable for tests and small deployments; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	names       []string // creation order
}

type memCollection struct {
	mu         sync.RWMutex
	info       models.CollectionInfo
	similarity SimilarityFunc
	points     []*models.Point
	byID       map[string]int
	byExternal map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (m *MemoryStore) collection(name string) (*memCollection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	return c, ok
}

// CollectionExists reports whether name exists.
func (m *MemoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	_, ok := m.collection(name)
	return ok, nil
}

// CreateCollection creates name unless it already exists.
func (m *MemoryStore) CreateCollection(_ context.Context, name string, dimension int, distance models.Distance) (bool, error) {
	if err := validateCollection(name, dimension); err != nil {
		return false, err
	}
	sim, err := Similarity(distance)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return false, nil
	}
	m.collections[name] = &memCollection{
		info: models.CollectionInfo{
			Name:      name,
			Dimension: dimension,
			Distance:  distance,
			CreatedAt: time.Now().UTC(),
		},
		similarity: sim,
		byID:       make(map[string]int),
		byExternal: make(map[string]int),
	}
	m.names = append(m.names, name)
	return true, nil
}

// DeleteCollection drops name and all its points.
func (m *MemoryStore) DeleteCollection(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return false, nil
	}
	delete(m.collections, name)
	for i, n := range m.names {
		if n == name {
			m.names = append(m.names[:i], m.names[i+1:]...)
			break
		}
	}
	return true, nil
}

// ListCollections returns collection names in creation order.
func (m *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out, nil
}

// DescribeCollection returns metadata for name, or nil if absent.
func (m *MemoryStore) DescribeCollection(_ context.Context, name string) (*models.CollectionInfo, error) {
	c, ok := m.collection(name)
	if !ok {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := c.info
	info.PointsCount = len(c.points)
	return &info, nil
}

// FindByExternalID looks the point up through the external ID index.
func (m *MemoryStore) FindByExternalID(_ context.Context, collection, externalID string) (*models.Point, error) {
	c, ok := m.collection(collection)
	if !ok {
		return nil, models.ErrCollectionNotFound
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byExternal[externalID]
	if !ok {
		return nil, nil
	}
	return clonePoint(c.points[i]), nil
}

// UpsertPoint stores a copy of p, replacing any point with the same ID in place.
func (m *MemoryStore) UpsertPoint(_ context.Context, collection string, p *models.Point) error {
	c, ok := m.collection(collection)
	if !ok {
		return models.NewStoreError("upsert", collection, models.ErrCollectionNotFound)
	}
	if err := checkDimension(c.info.Dimension, p.Vector); err != nil {
		return models.NewStoreError("upsert", collection, err)
	}
	stored := clonePoint(p)

	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.byID[p.ID]; ok {
		old := c.points[i]
		if old.Payload.ExternalID != p.Payload.ExternalID {
			delete(c.byExternal, old.Payload.ExternalID)
		}
		c.points[i] = stored
		c.byExternal[p.Payload.ExternalID] = i
		return nil
	}
	c.points = append(c.points, stored)
	c.byID[p.ID] = len(c.points) - 1
	c.byExternal[p.Payload.ExternalID] = len(c.points) - 1
	return nil
}

// SimilaritySearch scores every point in the collection against vector.
func (m *MemoryStore) SimilaritySearch(_ context.Context, collection string, vector []float32, limit int) ([]models.ScoredPoint, error) {
	c, ok := m.collection(collection)
	if !ok {
		return nil, models.ErrCollectionNotFound
	}
	if err := checkDimension(c.info.Dimension, vector); err != nil {
		return nil, models.NewStoreError("search", collection, err)
	}
	if limit <= 0 {
		return []models.ScoredPoint{}, nil
	}
	c.mu.RLock()
	cands := make([]candidate, len(c.points))
	for i, p := range c.points {
		cands[i] = candidate{point: p, score: c.similarity(vector, p.Vector)}
	}
	c.mu.RUnlock()
	return topK(cands, limit), nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
