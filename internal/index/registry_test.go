package index_test

import (
	"testing"
	"time"

	"github.com/memorai/memoraid/internal/index"
	"github.com/memorai/memoraid/internal/model"
	"github.com/stretchr/testify/assert"
)

func sampleRecord(id, tenant string, typ model.MemoryType, content string, tags []string) *model.MemoryRecord {
	now := time.Now()
	return &model.MemoryRecord{
		ID:             id,
		TenantID:       tenant,
		AgentID:        "agent-1",
		Type:           typ,
		Content:        content,
		Tags:           tags,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestRegistry_InsertAndCandidateSet(t *testing.T) {
	reg := index.NewRegistry()
	r1 := sampleRecord("id-1", "t1", model.TypeFact, "the backup key is stored offsite", []string{"infra"})
	r2 := sampleRecord("id-2", "t1", model.TypeThread, "alice asked about the weather", []string{"smalltalk"})
	r3 := sampleRecord("id-3", "t2", model.TypeFact, "other tenant's fact", []string{"infra"})

	reg.Insert(r1, []float32{0.1, 0.2})
	reg.Insert(r2, []float32{0.3, 0.4})
	reg.Insert(r3, []float32{0.5, 0.6})

	candidates := reg.CandidateSet("t1", "", "", nil)
	assert.Len(t, candidates, 2)
	_, ok := candidates["id-3"]
	assert.False(t, ok, "tenant isolation must exclude other tenants")

	byType := reg.CandidateSet("t1", "", model.TypeFact, nil)
	assert.Len(t, byType, 1)
	_, ok = byType["id-1"]
	assert.True(t, ok)

	byTag := reg.CandidateSet("t1", "", "", []string{"infra"})
	assert.Len(t, byTag, 1)
}

func TestRegistry_Remove(t *testing.T) {
	reg := index.NewRegistry()
	r1 := sampleRecord("id-1", "t1", model.TypeFact, "some fact content here", []string{"tagA"})
	reg.Insert(r1, []float32{0.1})

	reg.Remove(r1.ID, r1.Content, r1.Tags, r1.Type)
	assert.Equal(t, 0, reg.Semantic.Len())
	assert.Equal(t, 0, reg.Type.Count(model.TypeFact))
	assert.Len(t, reg.Tag.IDs("tagA"), 0)
}

func TestRegistry_TouchMeta(t *testing.T) {
	reg := index.NewRegistry()
	r1 := sampleRecord("id-1", "t1", model.TypeFact, "some fact content", nil)
	reg.Insert(r1, []float32{0.9, 0.8})

	r1.AccessCount = 5
	reg.TouchMeta(r1)

	meta, ok := reg.Semantic.Meta(r1.ID)
	assert.True(t, ok)
	assert.Equal(t, int64(5), meta.AccessCount)

	emb, ok := reg.Semantic.Embedding(r1.ID)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.9, 0.8}, emb)
}

func TestRegistry_Stats(t *testing.T) {
	reg := index.NewRegistry()
	reg.Insert(sampleRecord("id-1", "t1", model.TypeFact, "alpha beta gamma", []string{"x"}), []float32{0.1})
	reg.Insert(sampleRecord("id-2", "t1", model.TypeTask, "delta epsilon", nil), nil)

	stats := reg.Stats()
	assert.Equal(t, 2, stats.TotalIndexed)
	assert.Equal(t, 1, stats.WithEmbedding)
	assert.Equal(t, 1, stats.DistinctTags)
	assert.Equal(t, 1, stats.ByType[model.TypeFact])
	assert.Equal(t, 1, stats.ByType[model.TypeTask])
}
