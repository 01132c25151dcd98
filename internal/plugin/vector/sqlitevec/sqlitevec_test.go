package sqlitevec_test

import (
	"context"
	"path/filepath"
	"testing"

	"database/sql"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorai/memoraid/internal/plugin/vector/sqlitevec"
	registryvector "github.com/memorai/memoraid/internal/registry/vector"
)

func newTestStore(t *testing.T) *sqlitevec.Store {
	t.Helper()
	sqlite_vec.Auto()
	path := filepath.Join(t.TempDir(), "vectors.sqlite3")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := sqlitevec.NewForTest(db)
	require.NoError(t, s.Initialize(context.Background(), 3))
	return s
}

func TestStore_UpsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	points := []registryvector.Point{
		{ID: "a", Embedding: []float32{1, 0, 0}, Payload: map[string]any{"tenant_id": "t1", "agent_id": "ag1", "type": "fact"}},
		{ID: "b", Embedding: []float32{0, 1, 0}, Payload: map[string]any{"tenant_id": "t1", "agent_id": "ag1", "type": "fact"}},
		{ID: "c", Embedding: []float32{0, 0, 1}, Payload: map[string]any{"tenant_id": "t2", "agent_id": "ag2", "type": "fact"}},
	}
	require.NoError(t, s.Upsert(ctx, points))

	results, err := s.Search(ctx, []float32{1, 0, 0}, registryvector.Query{TenantID: "t1", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)

	for _, r := range results {
		assert.NotEqual(t, "c", r.ID, "tenant t2's point must not leak into t1's results")
	}
}

func TestStore_UpsertReplacesEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []registryvector.Point{
		{ID: "a", Embedding: []float32{1, 0, 0}, Payload: map[string]any{"tenant_id": "t1"}},
	}))
	require.NoError(t, s.Upsert(ctx, []registryvector.Point{
		{ID: "a", Embedding: []float32{0, 1, 0}, Payload: map[string]any{"tenant_id": "t1"}},
	}))

	count, err := s.Count(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := s.Search(ctx, []float32{0, 1, 0}, registryvector.Query{TenantID: "t1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []registryvector.Point{
		{ID: "a", Embedding: []float32{1, 0, 0}, Payload: map[string]any{"tenant_id": "t1"}},
	}))
	require.NoError(t, s.Delete(ctx, []string{"a"}))

	count, err := s.Count(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_HealthCheck(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.HealthCheck(context.Background()))
}
