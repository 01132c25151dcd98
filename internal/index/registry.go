package index

import (
	"github.com/memorai/memoraid/internal/model"
)

// Registry composes the four in-process indices used by hybrid recall. It
// owns no persistence of its own — internal/store is the durable source of
// truth, and Registry is rebuilt from it at startup.
type Registry struct {
	Keyword  *KeywordIndex
	Type     *TypeIndex
	Tag      *TagIndex
	Semantic *SemanticIndex
}

// NewRegistry constructs an empty set of indices.
func NewRegistry() *Registry {
	return &Registry{
		Keyword:  NewKeywordIndex(),
		Type:     NewTypeIndex(),
		Tag:      NewTagIndex(),
		Semantic: NewSemanticIndex(),
	}
}

// Insert adds r's content/tags/type to the keyword, type and tag indices,
// and r's embedding and shallow metadata to the semantic index. embedding may
// be nil when embedding the content failed at remember time.
func (reg *Registry) Insert(r *model.MemoryRecord, embedding []float32) {
	reg.Keyword.Add(r.ID, r.Content, r.Tags)
	reg.Type.Add(r.ID, r.Type)
	reg.Tag.Add(r.ID, r.Tags)
	reg.Semantic.Put(r.ID, embedding, MetaFrom(r))
}

// Remove deletes id from every index. content/tags/typ must match what was
// originally passed to Insert, since keyword/type/tag indexing is keyed by
// derived terms rather than by id alone.
func (reg *Registry) Remove(id, content string, tags []string, typ model.MemoryType) {
	reg.Keyword.Remove(id, content, tags)
	reg.Type.Remove(id, typ)
	reg.Tag.Remove(id, tags)
	reg.Semantic.Remove(id)
}

// TouchMeta refreshes id's shallow metadata (e.g. after an access-count or
// confidence update) without altering its embedding or the other indices.
func (reg *Registry) TouchMeta(r *model.MemoryRecord) {
	embedding, _ := reg.Semantic.Embedding(r.ID)
	reg.Semantic.Put(r.ID, embedding, MetaFrom(r))
}

// CandidateSet returns the ids matching the given scope, filtered by
// tenant/agent/type via the semantic index's metadata cache. The keyword
// index is not consulted. If tags is non-empty the candidates are the union
// of the tag index's buckets for those tags; otherwise, if typ is non-empty,
// the type index narrows the candidate set directly; otherwise every id
// known to the tenant is eligible.
func (reg *Registry) CandidateSet(tenantID, agentID string, typ model.MemoryType, tags []string) map[string]struct{} {
	candidates := make(map[string]struct{})

	add := func(ids map[string]struct{}) {
		for id := range ids {
			meta, ok := reg.Semantic.Meta(id)
			if !ok || !meta.MatchesFilter(tenantID, agentID, typ) {
				continue
			}
			candidates[id] = struct{}{}
		}
	}

	switch {
	case len(tags) > 0:
		for _, tag := range tags {
			add(reg.Tag.IDs(tag))
		}
	case typ != "":
		add(reg.Type.IDs(typ))
	default:
		reg.Semantic.mu.RLock()
		ids := make(map[string]struct{}, len(reg.Semantic.meta))
		for id := range reg.Semantic.meta {
			ids[id] = struct{}{}
		}
		reg.Semantic.mu.RUnlock()
		add(ids)
	}
	return candidates
}

// Stats summarizes index sizes for get_stats.
type Stats struct {
	TotalIndexed  int
	WithEmbedding int
	DistinctTerms int
	DistinctTags  int
	ByType        map[model.MemoryType]int
}

// Stats reports the current sizes of all four indices.
func (reg *Registry) Stats() Stats {
	return Stats{
		TotalIndexed:  reg.Semantic.Len(),
		WithEmbedding: reg.Semantic.EmbeddingCount(),
		DistinctTerms: reg.Keyword.TermCount(),
		DistinctTags:  reg.Tag.Count(),
		ByType:        reg.Type.Counts(),
	}
}
