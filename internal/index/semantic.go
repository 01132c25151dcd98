package index

import (
	"sync"
	"time"

	"github.com/memorai/memoraid/internal/model"
)

// ShallowMeta is a record's metadata without its embedding — cheap to carry
// around for filtering and hydration during ranking without round-tripping
// through the vector backend's payload encoding.
type ShallowMeta struct {
	TenantID       string
	AgentID        string
	Type           model.MemoryType
	Tags           []string
	Importance     float64
	Confidence     float64
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
}

// MetaFrom extracts the shallow metadata of a record.
func MetaFrom(r *model.MemoryRecord) ShallowMeta {
	return ShallowMeta{
		TenantID:       r.TenantID,
		AgentID:        r.AgentID,
		Type:           r.Type,
		Tags:           append([]string(nil), r.Tags...),
		Importance:     r.Importance,
		Confidence:     r.Confidence,
		CreatedAt:      r.CreatedAt,
		LastAccessedAt: r.LastAccessedAt,
		AccessCount:    r.AccessCount,
	}
}

// SemanticIndex stores id -> (embedding, shallow metadata). It is the only
// index that knows a record's full metadata, so other indices rely on it to
// resolve tenant/agent/type filters for candidate ids.
type SemanticIndex struct {
	mu         sync.RWMutex
	embeddings map[string][]float32
	meta       map[string]ShallowMeta
}

// NewSemanticIndex constructs an empty semantic index.
func NewSemanticIndex() *SemanticIndex {
	return &SemanticIndex{
		embeddings: make(map[string][]float32),
		meta:       make(map[string]ShallowMeta),
	}
}

// Put records id's embedding (which may be nil, if embedding failed) and
// metadata.
func (s *SemanticIndex) Put(id string, embedding []float32, meta ShallowMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if embedding != nil {
		s.embeddings[id] = append([]float32(nil), embedding...)
	} else {
		delete(s.embeddings, id)
	}
	s.meta[id] = meta
}

// PutMetaOnly records id's metadata without an embedding; it is the same as
// Put with a nil embedding.
func (s *SemanticIndex) PutMetaOnly(id string, meta ShallowMeta) {
	s.Put(id, nil, meta)
}

// Remove deletes id from both maps.
func (s *SemanticIndex) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.embeddings, id)
	delete(s.meta, id)
}

// Meta returns id's shallow metadata, if indexed.
func (s *SemanticIndex) Meta(id string) (ShallowMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meta[id]
	return m, ok
}

// Embedding returns id's embedding, if present.
func (s *SemanticIndex) Embedding(id string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.embeddings[id]
	return e, ok
}

// HasEmbedding reports whether id has an embedding entry.
func (s *SemanticIndex) HasEmbedding(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.embeddings[id]
	return ok
}

// Len returns the number of ids with metadata tracked.
func (s *SemanticIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meta)
}

// EmbeddingCount returns the number of ids that carry an embedding.
func (s *SemanticIndex) EmbeddingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings)
}

// AllIDs returns every id tracked by the index, across all tenants. Used by
// the maintenance sweep, which operates store-wide rather than per tenant.
func (s *SemanticIndex) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.meta))
	for id := range s.meta {
		ids = append(ids, id)
	}
	return ids
}

// MatchesFilter reports whether id's metadata is compatible with the given
// tenant/agent/type scoping (empty agentID/typ mean unrestricted).
func (m ShallowMeta) MatchesFilter(tenantID, agentID string, typ model.MemoryType) bool {
	if m.TenantID != tenantID {
		return false
	}
	if agentID != "" && m.AgentID != agentID {
		return false
	}
	if typ != "" && m.Type != typ {
		return false
	}
	return true
}
