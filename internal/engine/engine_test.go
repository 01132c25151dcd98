package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorai/memoraid/internal/engine"
	"github.com/memorai/memoraid/internal/model"
	"github.com/memorai/memoraid/internal/plugin/embed/local"
	registryvector "github.com/memorai/memoraid/internal/registry/vector"
	"github.com/memorai/memoraid/internal/store"
	"github.com/memorai/memoraid/internal/temporal"
)

// fakeVectorStore is an in-memory registryvector.Store used only for engine
// tests, so they don't depend on cgo/sqlite.
type fakeVectorStore struct {
	dimension int
	points    map[string]registryvector.Point
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{points: make(map[string]registryvector.Point)}
}

func (f *fakeVectorStore) Initialize(_ context.Context, dimension int) error {
	f.dimension = dimension
	return nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, points []registryvector.Point) error {
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(v float64) float64 {
	if v == 0 {
		return 0
	}
	x := v
	for i := 0; i < 50; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

func (f *fakeVectorStore) Search(_ context.Context, embedding []float32, query registryvector.Query) ([]registryvector.Result, error) {
	var results []registryvector.Result
	for id, p := range f.points {
		if tenant, _ := p.Payload["tenant_id"].(string); tenant != query.TenantID {
			continue
		}
		if query.AgentID != "" {
			if agent, _ := p.Payload["agent_id"].(string); agent != query.AgentID {
				continue
			}
		}
		if query.Type != "" {
			if typ, _ := p.Payload["type"].(string); typ != string(query.Type) {
				continue
			}
		}
		results = append(results, registryvector.Result{ID: id, Score: cosine(embedding, p.Embedding), Payload: p.Payload})
	}
	return results, nil
}

func (f *fakeVectorStore) Delete(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *fakeVectorStore) Count(_ context.Context, tenantID string) (int, error) {
	n := 0
	for _, p := range f.points {
		if tenant, _ := p.Payload["tenant_id"].(string); tenant == tenantID {
			n++
		}
	}
	return n, nil
}

func (f *fakeVectorStore) HealthCheck(_ context.Context) bool { return true }
func (f *fakeVectorStore) Close() error                       { return nil }

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)

	eng := engine.New(engine.Params{
		Store:                  s,
		Vector:                 newFakeVectorStore(),
		Embedder:               local.New(32),
		Temporal:               temporal.New(nil, 0.1, 0.05),
		Dimension:              32,
		DefaultRecallLimit:     10,
		DefaultRecallThreshold: 0.01,
		SemanticWeight:         0.7,
		KeywordWeight:          0.3,
	})
	require.NoError(t, eng.Initialize(context.Background()))
	return eng
}

func TestEngine_RememberAndRecall(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.Remember(ctx, "Alice prefers dark mode over light mode", "tenant-1", "agent-1", engine.RememberOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	resp, err := eng.Recall(ctx, "dark mode preference", "tenant-1", engine.RecallOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, id, resp.Results[0].Record.ID)
	assert.Nil(t, resp.Results[0].Record.Embedding)
	assert.False(t, resp.Partial)
}

func TestEngine_Remember_RejectsEmptyContent(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Remember(context.Background(), "   ", "tenant-1", "", engine.RememberOptions{})
	require.Error(t, err)
	var ice *model.InvalidContentError
	assert.ErrorAs(t, err, &ice)
}

func TestEngine_Recall_TenantIsolation(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Remember(ctx, "the vault backup key rotation schedule", "tenant-1", "", engine.RememberOptions{})
	require.NoError(t, err)
	_, err = eng.Remember(ctx, "the vault backup key rotation schedule", "tenant-2", "", engine.RememberOptions{})
	require.NoError(t, err)

	resp, err := eng.Recall(ctx, "vault backup key rotation", "tenant-1", engine.RecallOptions{})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.Equal(t, "tenant-1", r.Record.TenantID)
	}
}

func TestEngine_Forget(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.Remember(ctx, "a fact worth forgetting", "tenant-1", "", engine.RememberOptions{})
	require.NoError(t, err)

	ok, err := eng.Forget(ctx, "tenant-1", id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eng.Forget(ctx, "tenant-1", id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_GetContextAndStats(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Remember(ctx, "step one: install dependencies, then build", "tenant-1", "", engine.RememberOptions{})
	require.NoError(t, err)
	_, err = eng.Remember(ctx, "I feel excited about this project", "tenant-1", "", engine.RememberOptions{})
	require.NoError(t, err)

	c, err := eng.GetContext(ctx, "tenant-1", "", 10)
	require.NoError(t, err)
	assert.Len(t, c.Memories, 2)
	assert.NotEmpty(t, c.Summary)

	stats, err := eng.GetStats(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Totals)
	assert.Greater(t, stats.AvgImportance, 0.0)
}

func TestEngine_OperationsFailBeforeInitialize(t *testing.T) {
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	eng := engine.New(engine.Params{Store: s, Embedder: local.New(16), Dimension: 16})

	_, err = eng.Remember(context.Background(), "hello", "tenant-1", "", engine.RememberOptions{})
	require.Error(t, err)
	var notInit *model.NotInitializedError
	assert.ErrorAs(t, err, &notInit)
}

func TestEngine_ImportanceScenario_BackupKey(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.Remember(ctx, "Remember: backup key is XYZ", "tenant-1", "", engine.RememberOptions{})
	require.NoError(t, err)

	resp, err := eng.Recall(ctx, "backup key", "tenant-1", engine.RecallOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	var found bool
	for _, r := range resp.Results {
		if r.Record.ID == id {
			found = true
			assert.GreaterOrEqual(t, r.Record.Importance, 0.8)
		}
	}
	assert.True(t, found)
}
