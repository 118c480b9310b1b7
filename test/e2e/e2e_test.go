package e2e

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kensaku/internal/cli"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	e2eCollection  = "corpus"
	e2eSearchLimit = 5
)

func e2eConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = backend
	if backend != "memory" {
		cfg.Storage.Path = filepath.Join(t.TempDir(), "kensaku.db")
	}
	return cfg
}

// importCorpus writes the corpus as JSONL, then reads it back the way the import command does.
func importCorpus(t *testing.T, c *Corpus) []models.Item {
	t.Helper()
	dir := t.TempDir()
	_, err := c.WriteJSONL(dir, 12)
	require.NoError(t, err)

	files, err := indexer.MatchFiles(filepath.Join(dir, "**", "*.jsonl"))
	require.NoError(t, err)
	var items []models.Item
	for _, f := range files {
		fileItems, err := indexer.ReadItemsFile(f)
		require.NoError(t, err)
		items = append(items, fileItems...)
	}
	require.Len(t, items, len(c.Items))
	return items
}

func assertQueries(t *testing.T, ctx context.Context, c *Corpus, search func(*models.SearchQuery) (*models.SearchResponse, error)) {
	t.Helper()
	for _, tc := range c.TestCases {
		resp, err := search(&models.SearchQuery{Collection: e2eCollection, Query: tc.Query, Limit: e2eSearchLimit})
		require.NoError(t, err, tc.Query)
		require.NotEmpty(t, resp.Results, tc.Query)
		assert.LessOrEqual(t, len(resp.Results), e2eSearchLimit)
		assert.Equal(t, tc.ExpectedID, resp.Results[0].ID, "query %q", tc.Query)
		for i := 1; i < len(resp.Results); i++ {
			assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score, "query %q", tc.Query)
		}
	}
}

func TestE2E_LocalBackends(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := e2eConfig(t, backend)
			corpus := BuildCorpus()
			items := importCorpus(t, corpus)

			components, err := cli.NewComponents(cfg, zap.NewNop())
			require.NoError(t, err)

			created, err := components.Collections.Create(ctx, e2eCollection)
			require.NoError(t, err)
			require.True(t, created)

			stats, err := components.Indexer.IndexItems(ctx, e2eCollection, items, nil)
			require.NoError(t, err)
			assert.Equal(t, indexer.Stats{Indexed: len(items)}, stats)

			stats, err = components.Indexer.IndexItems(ctx, e2eCollection, items, nil)
			require.NoError(t, err)
			assert.Equal(t, indexer.Stats{Skipped: len(items)}, stats)

			assertQueries(t, ctx, corpus, func(q *models.SearchQuery) (*models.SearchResponse, error) {
				return components.Engine.Query(ctx, q)
			})
			components.Close()

			if backend == "memory" {
				return
			}
			reopened, err := cli.NewComponents(cfg, zap.NewNop())
			require.NoError(t, err)
			defer reopened.Close()

			info, err := reopened.Collections.Describe(ctx, e2eCollection)
			require.NoError(t, err)
			assert.Equal(t, len(items), info.PointsCount)
			assert.Equal(t, 384, info.Dimension)
			assert.Equal(t, models.DistanceCosine, info.Distance)

			assertQueries(t, ctx, corpus, func(q *models.SearchQuery) (*models.SearchResponse, error) {
				return reopened.Engine.Query(ctx, q)
			})
		})
	}
}

func TestE2E_OverHTTP(t *testing.T) {
	ctx := context.Background()
	cfg := e2eConfig(t, "bolt")
	corpus := BuildCorpus()
	items := importCorpus(t, corpus)

	components, err := cli.NewComponents(cfg, zap.NewNop())
	require.NoError(t, err)
	defer components.Close()
	srv := server.NewServer(components.Collections, components.Indexer, components.Engine, cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := cli.NewClient(ts.URL)
	defer client.Close()

	_, err = client.CreateCollection(ctx, e2eCollection)
	require.NoError(t, err)
	stats, err := client.IndexItems(ctx, e2eCollection, items, nil)
	require.NoError(t, err)
	assert.Equal(t, len(items), stats.Indexed)

	assertQueries(t, ctx, corpus, func(q *models.SearchQuery) (*models.SearchResponse, error) {
		return client.Search(ctx, q)
	})

	deleted, err := client.DeleteCollection(ctx, e2eCollection)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = client.Search(ctx, &models.SearchQuery{Collection: e2eCollection, Query: corpus.TestCases[0].Query})
	assert.ErrorIs(t, err, models.ErrCollectionNotFound)
}
