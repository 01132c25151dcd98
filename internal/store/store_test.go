package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/memorai/memoraid/internal/model"
	"github.com/memorai/memoraid/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(dir)
	require.NoError(t, err)
	return s
}

func sampleRecord(id, tenant string) *model.MemoryRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.MemoryRecord{
		ID:             id,
		TenantID:       tenant,
		AgentID:        "agent-1",
		Type:           model.TypeFact,
		Content:        "the sky is blue",
		Confidence:     0.8,
		Importance:     0.5,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := sampleRecord("id-1", "t1")

	require.NoError(t, s.Put(ctx, r))

	got, err := s.Get(ctx, "t1", "id-1")
	require.NoError(t, err)
	assert.Equal(t, r.Content, got.Content)
	assert.Equal(t, r.TenantID, got.TenantID)
}

func TestStore_GetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "t1", "missing")
	require.Error(t, err)
	var nf *model.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := sampleRecord("id-1", "t1")
	require.NoError(t, s.Put(ctx, r))
	require.NoError(t, s.Delete(ctx, "t1", "id-1"))

	_, err := s.Get(ctx, "t1", "id-1")
	require.Error(t, err)
}

func TestStore_DeleteMissingIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Delete(context.Background(), "t1", "never-existed"))
}

func TestStore_LoadAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleRecord("id-1", "t1")))
	require.NoError(t, s.Put(ctx, sampleRecord("id-2", "t1")))
	require.NoError(t, s.Put(ctx, sampleRecord("id-3", "t2")))

	records, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestStore_LoadAll_QuarantinesCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleRecord("id-good", "t1")))

	tenantDir := filepath.Join(dir, "t1")
	corruptPath := filepath.Join(tenantDir, "id-bad.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not valid json"), 0o600))

	records, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	quarantined := filepath.Join(dir, "quarantine", "id-bad.json")
	_, statErr := os.Stat(quarantined)
	assert.NoError(t, statErr)

	_, statErr = os.Stat(corruptPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_LoadAll_EmptyDataPath(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "does-not-exist-yet"))
	require.NoError(t, err)
	records, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
