package engine

import (
	"github.com/memorai/memoraid/internal/model"
)

// RememberOptions carries remember()'s optional fields; zero values mean
// "let the engine decide".
type RememberOptions struct {
	Type            model.MemoryType
	Tags            []string
	Context         map[string]interface{}
	Importance      *float64
	EmotionalWeight *float64
	TTLSeconds      int64
}

// RecallOptions carries recall()'s optional fields. Limit and Threshold are
// pointers so the engine can tell "caller didn't specify" from "caller asked
// for zero" and fall back to the configured defaults.
type RecallOptions struct {
	AgentID   string
	Type      model.MemoryType
	Limit     *int
	Threshold *float64
	TimeDecay bool
}

// RecallResult is a single ranked recall hit, embedding stripped.
type RecallResult struct {
	Record *model.MemoryRecord `json:"record"`
	Score  float64             `json:"score"`
}

// RecallResponse is recall()'s full response shape: the ranked hits plus a
// Partial flag the caller must surface whenever the embedder or vector store
// failed mid-call and results fell back to keyword-only search.
type RecallResponse struct {
	Results []RecallResult `json:"results"`
	Partial bool           `json:"partial"`
}

// Context is get_context's response shape.
type Context struct {
	Memories []*model.MemoryRecord `json:"memories"`
	Summary  string                `json:"summary"`
}

// Stats is get_stats's response shape.
type Stats struct {
	Totals             int                        `json:"totals"`
	ByType             map[model.MemoryType]int   `json:"by_type"`
	IndexSizes         IndexSizes                 `json:"index_sizes"`
	AvgImportance      float64                    `json:"avg_importance"`
	RecentActivity24h  int                        `json:"recent_activity_24h"`
}

// IndexSizes reports the size of every in-process index, for get_stats.
type IndexSizes struct {
	Semantic int `json:"semantic"`
	Keyword  int `json:"keyword_terms"`
	Tag      int `json:"distinct_tags"`
}
