package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kensaku/internal/models"
	"go.uber.org/zap"
)

// maxBodyBytes bounds index request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	created, err := s.collections.Create(r.Context(), name)
	if err != nil {
		s.respondFailure(w, "create collection", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, map[string]interface{}{"name": name, "created": created})
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	deleted, err := s.collections.Delete(r.Context(), name)
	if err != nil {
		s.respondFailure(w, "delete collection", err)
		return
	}
	if !deleted {
		s.respondError(w, http.StatusNotFound, "collection not found: "+name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.collections.List(r.Context())
	if err != nil {
		s.respondFailure(w, "list collections", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"collections": names})
}

func (s *Server) handleDescribeCollection(w http.ResponseWriter, r *http.Request) {
	info, err := s.collections.Describe(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondFailure(w, "describe collection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	coll := chi.URLParam(r, "collection")
	var item models.Item
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&item); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("index request", zap.String("collection", coll), zap.String("id", item.ID))
	indexed, err := s.indexer.Index(r.Context(), coll, item)
	if err != nil {
		s.respondFailure(w, "indexing", err)
		return
	}
	status := "indexed"
	if !indexed {
		status = "skipped"
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": item.ID, "status": status})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := models.SearchQuery{
		Collection: chi.URLParam(r, "collection"),
		Query:      r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		query.Limit = limit
	}
	s.logger.Info("search request",
		zap.String("collection", query.Collection),
		zap.String("query", query.Query),
		zap.Int("limit", query.Limit))
	resp, err := s.engine.Query(r.Context(), &query)
	if err != nil {
		s.respondFailure(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp.Results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := s.collections.List(ctx)
	if err != nil {
		s.respondFailure(w, "status", err)
		return
	}
	points := 0
	for _, name := range names {
		info, err := s.collections.Describe(ctx, name)
		if err != nil {
			if models.IsCollectionNotFound(err) {
				continue // deleted since List
			}
			s.respondFailure(w, "status", err)
			return
		}
		points += info.PointsCount
	}
	resp := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"collections":    len(names),
		"points":         points,
		"config": map[string]interface{}{
			"storage_backend":    s.config.Storage.Backend,
			"vector_dimension":   s.collections.Dimension(),
			"distance_metric":    s.collections.Distance(),
			"embedding_provider": s.config.Embedding.Provider,
			"rerank_provider":    s.config.Rerank.Provider,
			"max_limit":          s.engine.Bounds().MaxLimit,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps an error chain to an HTTP status. A missing collection wins over a store failure.
func statusFor(err error) int {
	switch {
	case models.IsCollectionNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
