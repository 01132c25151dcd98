package index_test

import (
	"testing"
	"time"

	"github.com/memorai/memoraid/internal/index"
	"github.com/memorai/memoraid/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticIndex_PutAndMeta(t *testing.T) {
	s := index.NewSemanticIndex()
	meta := index.ShallowMeta{TenantID: "t1", AgentID: "a1", Type: model.TypeFact, CreatedAt: time.Now()}
	s.Put("id-1", []float32{0.1, 0.2}, meta)

	got, ok := s.Meta("id-1")
	require.True(t, ok)
	assert.Equal(t, "t1", got.TenantID)

	emb, ok := s.Embedding("id-1")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, emb)
	assert.True(t, s.HasEmbedding("id-1"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.EmbeddingCount())
}

func TestSemanticIndex_PutMetaOnly(t *testing.T) {
	s := index.NewSemanticIndex()
	s.PutMetaOnly("id-2", index.ShallowMeta{TenantID: "t1"})
	assert.False(t, s.HasEmbedding("id-2"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.EmbeddingCount())
}

func TestSemanticIndex_Remove(t *testing.T) {
	s := index.NewSemanticIndex()
	s.Put("id-1", []float32{0.1}, index.ShallowMeta{TenantID: "t1"})
	s.Remove("id-1")
	_, ok := s.Meta("id-1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestShallowMeta_MatchesFilter(t *testing.T) {
	m := index.ShallowMeta{TenantID: "t1", AgentID: "a1", Type: model.TypeFact}
	assert.True(t, m.MatchesFilter("t1", "", ""))
	assert.True(t, m.MatchesFilter("t1", "a1", model.TypeFact))
	assert.False(t, m.MatchesFilter("t2", "", ""))
	assert.False(t, m.MatchesFilter("t1", "a2", ""))
	assert.False(t, m.MatchesFilter("t1", "", model.TypeThread))
}
