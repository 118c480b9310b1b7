package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/cors"
	"github.com/hyperjump/kensaku/internal/collection"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/rerank"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDims = 16

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Vector.Dimension = testDims
	cfg.Server.Port = 0
	store := vector.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	emb := embedding.NewHashEmbedder(testDims)
	return NewServer(
		collection.NewManager(store, testDims, models.DistanceCosine),
		indexer.NewIndexer(store, emb),
		search.NewEngine(store, emb, rerank.NewLexicalScorer(), search.WithBounds(cfg.Search.Bounds())),
		cfg,
		zap.NewNop(),
	)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestCollectionsLifecycle(t *testing.T) {
	h := newTestServer(t).Handler()

	w := do(t, h, http.MethodPost, "/collections/docs", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = do(t, h, http.MethodPost, "/collections/docs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"docs","created":false}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/collections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"collections":["docs"]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/collections/docs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.CollectionInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "docs", info.Name)
	assert.Equal(t, testDims, info.Dimension)
	assert.Equal(t, models.DistanceCosine, info.Distance)

	w = do(t, h, http.MethodDelete, "/collections/docs", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, "/collections/docs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodGet, "/collections/docs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndexAndSearch(t *testing.T) {
	h := newTestServer(t).Handler()
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/collections/docs", nil).Code)

	items := []models.Item{
		{ID: "ml", Text: "machine learning algorithms"},
		{ID: "cook", Text: "cooking pasta recipes"},
	}
	for _, it := range items {
		w := do(t, h, http.MethodPost, "/index/docs", it)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"id":%q,"status":"indexed"}`, it.ID), w.Body.String())
	}
	w := do(t, h, http.MethodPost, "/index/docs", models.Item{ID: "ml", Text: "changed"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"ml","status":"skipped"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/search/docs?q=machine+learning&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []models.SearchResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&results))
	require.Len(t, results, 2)
	assert.Equal(t, "ml", results[0].ID)
	assert.Equal(t, "machine learning algorithms", results[0].Text)
}

func TestIndexErrors(t *testing.T) {
	h := newTestServer(t).Handler()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/index/missing", models.Item{ID: "x", Text: "y"}).Code)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/collections/docs", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/index/docs", models.Item{Text: "no id"}).Code)

	r := httptest.NewRequest(http.MethodPost, "/index/docs", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchValidation(t *testing.T) {
	h := newTestServer(t).Handler()
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/collections/docs", nil).Code)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"empty collection", "/search/docs?q=hello", http.StatusOK},
		{"missing collection", "/search/nope?q=hello", http.StatusNotFound},
		{"query too short", "/search/docs?q=hi", http.StatusBadRequest},
		{"query missing", "/search/docs", http.StatusBadRequest},
		{"query too long", "/search/docs?q=" + string(bytes.Repeat([]byte("a"), 51)), http.StatusBadRequest},
		{"limit zero", "/search/docs?q=hello&limit=0", http.StatusBadRequest},
		{"limit not a number", "/search/docs?q=hello&limit=ten", http.StatusBadRequest},
		{"limit above max", "/search/docs?q=hello&limit=101", http.StatusBadRequest},
		{"limit at max", "/search/docs?q=hello&limit=100", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := do(t, h, http.MethodGet, "/search/docs?q=hello", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHealthAndStatus(t *testing.T) {
	h := newTestServer(t).Handler()
	w := do(t, h, http.MethodGet, "/health", nil)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/collections/docs", nil).Code)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/index/docs", models.Item{ID: "a", Text: "alpha"}).Code)

	w = do(t, h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Collections int `json:"collections"`
		Points      int `json:"points"`
		Config      struct {
			StorageBackend  string `json:"storage_backend"`
			VectorDimension int    `json:"vector_dimension"`
			DistanceMetric  string `json:"distance_metric"`
			RerankProvider  string `json:"rerank_provider"`
		} `json:"config"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, 1, out.Collections)
	assert.Equal(t, 1, out.Points)
	assert.Equal(t, "memory", out.Config.StorageBackend)
	assert.Equal(t, testDims, out.Config.VectorDimension)
	assert.Equal(t, "cosine", out.Config.DistanceMetric)
	assert.Equal(t, "lexical", out.Config.RerankProvider)
}

func TestStatusFor(t *testing.T) {
	notFound := fmt.Errorf("%w: docs", models.ErrCollectionNotFound)
	assert.Equal(t, http.StatusNotFound, statusFor(notFound))
	assert.Equal(t, http.StatusNotFound, statusFor(models.NewStoreError("upsert", "docs", notFound)))
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("%w: bad", models.ErrInvalidArgument)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.NewStoreError("upsert", "docs", errors.New("io"))))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.DeadlineExceeded))
	mismatch := fmt.Errorf("%w: got 16, expected 8", models.ErrDimensionMismatch)
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.NewStoreError("search", "docs", mismatch)))
}

func TestCORS(t *testing.T) {
	h := newTestServer(t).Handler()

	r := httptest.NewRequest(http.MethodOptions, "/collections/docs", nil)
	r.Header.Set("Origin", "http://example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodDelete, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	restricted := cors.Handler(corsOptions([]string{"http://allowed.test"}))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for origin, want := range map[string]string{"http://allowed.test": "http://allowed.test", "http://other.test": ""} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		restricted.ServeHTTP(w, r)
		assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestDimensionMismatchIsServerError(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	_, err := store.CreateCollection(ctx, "old", 8, models.DistanceCosine)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Vector.Dimension = testDims
	emb := embedding.NewHashEmbedder(testDims)
	h := NewServer(
		collection.NewManager(store, testDims, models.DistanceCosine),
		indexer.NewIndexer(store, emb),
		search.NewEngine(store, emb, rerank.NewLexicalScorer(), search.WithBounds(cfg.Search.Bounds())),
		cfg,
		zap.NewNop(),
	).Handler()

	w := do(t, h, http.MethodGet, "/search/old?q=hello", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "dimension mismatch")

	w = do(t, h, http.MethodPost, "/index/old", models.Item{ID: "a", Text: "hello"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, s.Start(), http.ErrServerClosed)
}

func TestServer_StopDuringStart(t *testing.T) {
	s := newTestServer(t)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-ctx.Done():
		t.Fatal("Start did not return after Stop")
	}
}
