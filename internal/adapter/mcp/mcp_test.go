package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorai/memoraid/internal/engine"
	"github.com/memorai/memoraid/internal/plugin/embed/local"
	registryvector "github.com/memorai/memoraid/internal/registry/vector"
	"github.com/memorai/memoraid/internal/store"
	"github.com/memorai/memoraid/internal/temporal"
)

type fakeVectorStore struct{}

func (f *fakeVectorStore) Initialize(_ context.Context, _ int) error { return nil }
func (f *fakeVectorStore) Upsert(_ context.Context, _ []registryvector.Point) error {
	return nil
}
func (f *fakeVectorStore) Search(_ context.Context, _ []float32, _ registryvector.Query) ([]registryvector.Result, error) {
	return nil, nil
}
func (f *fakeVectorStore) Delete(_ context.Context, _ []string) error     { return nil }
func (f *fakeVectorStore) Count(_ context.Context, _ string) (int, error) { return 0, nil }
func (f *fakeVectorStore) HealthCheck(_ context.Context) bool            { return true }
func (f *fakeVectorStore) Close() error                                  { return nil }

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)

	eng := engine.New(engine.Params{
		Store:                  s,
		Vector:                 &fakeVectorStore{},
		Embedder:               local.New(32),
		Temporal:               temporal.New(nil, 0.1, 0.05),
		Dimension:              32,
		DefaultRecallLimit:     10,
		DefaultRecallThreshold: 0.01,
	})
	require.NoError(t, eng.Initialize(context.Background()))
	return eng
}

func callRequest(args map[string]interface{}) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestNewServer_ReturnsServer(t *testing.T) {
	eng := newTestEngine(t)
	s := NewServer(eng)
	assert.NotNil(t, s)
}

func TestRememberAndRecallHandlers(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	result, err := rememberHandler(eng)(ctx, callRequest(map[string]interface{}{
		"content":   "Bob prefers tabs over spaces",
		"tenant_id": "tenant-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	recallResult, err := recallHandler(eng)(ctx, callRequest(map[string]interface{}{
		"query":     "tabs over spaces",
		"tenant_id": "tenant-1",
	}))
	require.NoError(t, err)
	require.False(t, recallResult.IsError)
}

func TestRememberHandler_MissingTenantErrors(t *testing.T) {
	eng := newTestEngine(t)

	result, err := rememberHandler(eng)(context.Background(), callRequest(map[string]interface{}{
		"content": "no tenant supplied",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestForgetHandler_UnknownIDReportsFalse(t *testing.T) {
	eng := newTestEngine(t)

	result, err := forgetHandler(eng)(context.Background(), callRequest(map[string]interface{}{
		"tenant_id": "tenant-1",
		"id":        "does-not-exist",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "false", result.Content[0].(mcpgo.TextContent).Text)
}

func TestStatsHandler_ReturnsJSON(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := rememberHandler(eng)(ctx, callRequest(map[string]interface{}{
		"content":   "first memory",
		"tenant_id": "tenant-1",
	}))
	require.NoError(t, err)

	result, err := statsHandler(eng)(ctx, callRequest(map[string]interface{}{
		"tenant_id": "tenant-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.True(t, json.Valid([]byte(result.Content[0].(mcpgo.TextContent).Text)))
}
