// Package collection manages the lifecycle of named collections.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
	"go.uber.org/zap"
)

// Manager creates, deletes and describes collections. Every collection it creates
// uses the deployment-wide dimension and distance.
type Manager struct {
	store     vector.Store
	dimension int
	distance  models.Distance
	logger    *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for collection lifecycle events.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a Manager over store.
func NewManager(store vector.Store, dimension int, distance models.Distance, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		dimension: dimension,
		distance:  distance,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dimension returns the vector dimension of collections created by m.
func (m *Manager) Dimension() int { return m.dimension }

// Distance returns the distance of collections created by m.
func (m *Manager) Distance() models.Distance { return m.distance }

// Create creates name. It returns false without error when the collection already exists.
func (m *Manager) Create(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: collection name cannot be empty", models.ErrInvalidArgument)
	}
	exists, err := m.store.CollectionExists(ctx, name)
	if err != nil {
		return false, asStoreError("exists", name, err)
	}
	if exists {
		m.logger.Debug("collection already exists", zap.String("collection", name))
		return false, nil
	}
	created, err := m.store.CreateCollection(ctx, name, m.dimension, m.distance)
	if err != nil {
		return false, asStoreError("create", name, err)
	}
	if created {
		m.logger.Info("collection created",
			zap.String("collection", name),
			zap.Int("dimension", m.dimension),
			zap.String("distance", string(m.distance)))
	}
	return created, nil
}

// Delete removes name and all of its points. It returns false when the collection did not exist.
func (m *Manager) Delete(ctx context.Context, name string) (bool, error) {
	deleted, err := m.store.DeleteCollection(ctx, name)
	if err != nil {
		return false, asStoreError("delete", name, err)
	}
	if deleted {
		m.logger.Info("collection deleted", zap.String("collection", name))
	}
	return deleted, nil
}

// List returns collection names in store order. Callers must not rely on that order.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	names, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, asStoreError("list", "", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Describe returns metadata for name, or an error wrapping models.ErrCollectionNotFound.
func (m *Manager) Describe(ctx context.Context, name string) (*models.CollectionInfo, error) {
	info, err := m.store.DescribeCollection(ctx, name)
	if err != nil {
		return nil, asStoreError("describe", name, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	return info, nil
}

// asStoreError wraps backend failures, leaving input and StoreError values as they are.
func asStoreError(op, name string, err error) error {
	if models.IsStoreError(err) || models.IsCollectionNotFound(err) ||
		errors.Is(err, models.ErrInvalidArgument) {
		return err
	}
	return models.NewStoreError(op, name, err)
}
