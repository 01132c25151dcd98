// Package engine implements the Memory Engine: the orchestrator that wires
// together the classifier, temporal decay engine, persistent store, vector
// store, and in-process indices behind remember/recall/forget/get_context/
// get_stats.
package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/memorai/memoraid/internal/classifier"
	"github.com/memorai/memoraid/internal/index"
	"github.com/memorai/memoraid/internal/model"
	registryembed "github.com/memorai/memoraid/internal/registry/embed"
	registryvector "github.com/memorai/memoraid/internal/registry/vector"
	"github.com/memorai/memoraid/internal/store"
	"github.com/memorai/memoraid/internal/temporal"
)

const lockShardCount = 256

var validate = validator.New()

type rememberInput struct {
	Content  string `validate:"required"`
	TenantID string `validate:"required"`
}

type recallInput struct {
	Query    string `validate:"required"`
	TenantID string `validate:"required"`
}

// firstInvalidField extracts the lowercased struct field name of the first
// validation failure, falling back to fallback if err isn't a
// validator.ValidationErrors (defensive; validate.Struct only ever returns
// that type or nil for these input structs).
func firstInvalidField(err error, fallback string) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return strings.ToLower(verrs[0].Field())
	}
	return fallback
}

// Engine is the memory engine described by the component design: it owns no
// transport of its own and is safe for concurrent use by many callers.
type Engine struct {
	store    *store.Store
	vector   registryvector.Store
	embedder registryembed.Embedder
	temporal *temporal.Engine
	indices  *index.Registry

	dimension              int
	defaultRecallLimit     int
	defaultRecallThreshold float64
	semanticWeight         float64
	keywordWeight          float64

	locks [lockShardCount]sync.Mutex

	// rememberQueue bounds concurrent remember calls when non-nil; a full
	// queue fails fast with Overloaded rather than blocking.
	rememberQueue chan struct{}

	initOnce  sync.Once
	initErr   error
	initDone  bool
	initMu    sync.RWMutex
}

// Params bundles an Engine's fixed construction-time dependencies and
// tunables, all sourced from an explicit Config — never read lazily from the
// environment.
type Params struct {
	Store                  *store.Store
	Vector                 registryvector.Store
	Embedder               registryembed.Embedder
	Temporal               *temporal.Engine
	Dimension              int
	DefaultRecallLimit     int
	DefaultRecallThreshold float64
	SemanticWeight         float64
	KeywordWeight          float64
	RememberQueueSize      int
}

// New constructs an Engine. Call Initialize before use.
func New(p Params) *Engine {
	var queue chan struct{}
	if p.RememberQueueSize > 0 {
		queue = make(chan struct{}, p.RememberQueueSize)
	}
	limit := p.DefaultRecallLimit
	if limit <= 0 {
		limit = 10
	}
	threshold := p.DefaultRecallThreshold
	semW, keyW := p.SemanticWeight, p.KeywordWeight
	if semW == 0 && keyW == 0 {
		semW, keyW = 0.7, 0.3
	}
	return &Engine{
		store:                  p.Store,
		vector:                 p.Vector,
		embedder:               p.Embedder,
		temporal:               p.Temporal,
		indices:                index.NewRegistry(),
		dimension:              p.Dimension,
		defaultRecallLimit:     limit,
		defaultRecallThreshold: threshold,
		semanticWeight:         semW,
		keywordWeight:          keyW,
		rememberQueue:          queue,
	}
}

func (e *Engine) lockFor(id string) *sync.Mutex {
	sum := sha256.Sum256([]byte(id))
	return &e.locks[int(sum[0])%lockShardCount]
}

// Initialize loads the persistent store, rebuilds every index from it, and
// verifies the vector store's health. Idempotent: repeat calls are no-ops
// that return the first call's outcome.
func (e *Engine) Initialize(ctx context.Context) error {
	e.initOnce.Do(func() {
		e.initErr = e.initialize(ctx)
		e.initMu.Lock()
		e.initDone = e.initErr == nil
		e.initMu.Unlock()
	})
	return e.initErr
}

func (e *Engine) initialize(ctx context.Context) error {
	if e.vector != nil {
		if err := e.vector.Initialize(ctx, e.dimension); err != nil {
			return &model.InitError{Reason: "vector store initialize failed", Err: err}
		}
	}

	records, err := e.store.LoadAll(ctx)
	if err != nil {
		return &model.InitError{Reason: "persistent store scan failed", Err: err}
	}

	for _, r := range records {
		e.indices.Insert(r, r.Embedding)
	}
	log.Info("engine initialized", "records_loaded", len(records))

	if e.vector != nil && !e.vector.HealthCheck(ctx) {
		log.Warn("vector store health check failed at startup; semantic recall may degrade")
	}
	return nil
}

func (e *Engine) checkInitialized() error {
	e.initMu.RLock()
	defer e.initMu.RUnlock()
	if !e.initDone {
		return &model.NotInitializedError{}
	}
	return nil
}

// Remember classifies, embeds, persists, and indexes a new memory. It
// returns the new record's id.
func (e *Engine) Remember(ctx context.Context, content, tenantID, agentID string, opts RememberOptions) (string, error) {
	if err := e.checkInitialized(); err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if err := validate.Struct(rememberInput{Content: content, TenantID: tenantID}); err != nil {
		return "", &model.InvalidContentError{Field: firstInvalidField(err, "content")}
	}

	if e.rememberQueue != nil {
		select {
		case e.rememberQueue <- struct{}{}:
			defer func() { <-e.rememberQueue }()
		default:
			return "", &model.OverloadedError{}
		}
	}

	if err := ctx.Err(); err != nil {
		return "", &model.CancelledError{Op: "remember"}
	}

	typ := opts.Type
	var reasoning string
	if typ == "" || !typ.Valid() {
		result := classifier.Classify(content)
		typ = result.Type
		reasoning = result.Reasoning
	}

	importance := computeImportance(content)
	if opts.Importance != nil {
		importance = clamp01(*opts.Importance)
	}

	now := time.Now()
	r := &model.MemoryRecord{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		AgentID:         agentID,
		Type:            typ,
		Content:         content,
		Tags:            opts.Tags,
		Context:         annotateReasoning(opts.Context, reasoning),
		Confidence:      0.8,
		Importance:      importance,
		EmotionalWeight: opts.EmotionalWeight,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastAccessedAt:  now,
	}
	if opts.TTLSeconds > 0 {
		ttl := now.Add(time.Duration(opts.TTLSeconds) * time.Second)
		r.TTL = &ttl
	}

	var embedding []float32
	if e.embedder != nil {
		vecs, err := e.embedder.EmbedTexts(ctx, []string{content})
		if err != nil {
			log.Warn("embedding failed at remember time; record stored without a semantic index entry", "err", err)
		} else if len(vecs) == 1 {
			embedding = vecs[0]
			r.Embedding = embedding
		}
	}

	if err := e.store.Put(ctx, r); err != nil {
		return "", err
	}

	mu := e.lockFor(r.ID)
	mu.Lock()
	e.indices.Insert(r, embedding)
	if e.vector != nil && embedding != nil {
		if err := e.vector.Upsert(ctx, []registryvector.Point{recordToPoint(r)}); err != nil {
			log.Warn("vector store upsert failed; record remains keyword/type/tag searchable only", "err", err)
		}
	}
	mu.Unlock()

	return r.ID, nil
}

func recordToPoint(r *model.MemoryRecord) registryvector.Point {
	return registryvector.Point{
		ID:        r.ID,
		Embedding: r.Embedding,
		Payload: map[string]any{
			"tenant_id":  r.TenantID,
			"agent_id":   r.AgentID,
			"type":       string(r.Type),
			"created_at": r.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func annotateReasoning(ctxMap map[string]interface{}, reasoning string) map[string]interface{} {
	if reasoning == "" {
		return ctxMap
	}
	out := make(map[string]interface{}, len(ctxMap)+1)
	for k, v := range ctxMap {
		out[k] = v
	}
	out["classification_reasoning"] = reasoning
	return out
}

// importanceCategories groups the keyword cues from spec §4.7's importance
// formula. "key" and "backup" are treated as sensitive-data cues alongside
// password/secret/private rather than as a generic remember/note cue, since
// grouping them with remember/note under-scores concrete secret-bearing
// content relative to the scenarios the formula is meant to capture.
var importanceCategories = []struct {
	words []string
	bonus float64
}{
	{[]string{"important", "critical", "urgent"}, 0.3},
	{[]string{"remember", "note"}, 0.2},
	{[]string{"password", "secret", "private", "key", "backup"}, 0.3},
}

func computeImportance(content string) float64 {
	lower := strings.ToLower(content)
	score := 0.5
	for _, cat := range importanceCategories {
		for _, w := range cat.words {
			if strings.Contains(lower, w) {
				score += cat.bonus
				break
			}
		}
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Recall runs semantic and keyword search restricted to tenantID (and
// agentID/type if specified), merges and ranks the results, updates access
// statistics for everything returned, and strips embeddings from the
// response. The response's Partial flag is set whenever the embedder or
// vector store failed mid-call and results fell back to keyword-only search,
// so callers can tell a best-effort result set from a complete one.
func (e *Engine) Recall(ctx context.Context, query, tenantID string, opts RecallOptions) (*RecallResponse, error) {
	if err := e.checkInitialized(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if err := validate.Struct(recallInput{Query: query, TenantID: tenantID}); err != nil {
		return nil, &model.InvalidContentError{Field: firstInvalidField(err, "query")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &model.CancelledError{Op: "recall"}
	}

	limit := e.defaultRecallLimit
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	threshold := e.defaultRecallThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	keywordScores := e.indices.Keyword.Score(query)

	var semanticResults []registryvector.Result
	degraded := false
	if e.embedder != nil && e.vector != nil {
		vecs, err := e.embedder.EmbedTexts(ctx, []string{query})
		if err != nil {
			log.Warn("recall: embedding failed, degrading to keyword-only search", "err", err)
			degraded = true
		} else {
			results, err := e.vector.Search(ctx, vecs[0], registryvector.Query{
				TenantID: tenantID,
				AgentID:  opts.AgentID,
				Type:     opts.Type,
				Limit:    limit * 4,
			})
			if err != nil {
				log.Warn("recall: vector store search failed, degrading to keyword-only search", "err", err)
				degraded = true
			} else {
				semanticResults = results
			}
		}
	}

	merged := make(map[string]float64)
	for _, sr := range semanticResults {
		merged[sr.ID] = sr.Score * e.semanticWeight
	}
	for id, ks := range keywordScores {
		meta, ok := e.indices.Semantic.Meta(id)
		if !ok || !meta.MatchesFilter(tenantID, opts.AgentID, opts.Type) {
			continue
		}
		contribution := ks * e.keywordWeight
		if existing, present := merged[id]; present {
			merged[id] = math.Max(existing, existing+contribution)
		} else {
			merged[id] = contribution
		}
	}

	type scored struct {
		id    string
		score float64
		meta  index.ShallowMeta
	}
	var candidates []scored
	for id, score := range merged {
		meta, ok := e.indices.Semantic.Meta(id)
		if !ok {
			continue
		}
		if !meta.MatchesFilter(tenantID, opts.AgentID, opts.Type) {
			continue
		}
		if degraded {
			score *= 0.5
		}
		candidates = append(candidates, scored{id: id, score: score, meta: meta})
	}

	if opts.TimeDecay && e.temporal != nil {
		now := time.Now()
		for i, c := range candidates {
			rec, err := e.store.Get(ctx, tenantID, c.id)
			if err != nil || rec.Confidence == 0 {
				continue
			}
			ratio := e.temporal.AdjustedConfidence(rec, now) / rec.Confidence
			candidates[i].score *= ratio
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.meta.LastAccessedAt.Equal(b.meta.LastAccessedAt) {
			return a.meta.LastAccessedAt.After(b.meta.LastAccessedAt)
		}
		if a.meta.Importance != b.meta.Importance {
			return a.meta.Importance > b.meta.Importance
		}
		return a.id < b.id
	})

	var out []RecallResult
	now := time.Now()
	for _, c := range candidates {
		if len(out) >= limit {
			break
		}
		if c.score < threshold {
			continue
		}
		rec, err := e.touchAccess(ctx, tenantID, c.id, now)
		if err != nil {
			continue
		}
		out = append(out, RecallResult{Record: rec.WithoutEmbedding(), Score: c.score})
	}
	return &RecallResponse{Results: out, Partial: degraded}, nil
}

func (e *Engine) touchAccess(ctx context.Context, tenantID, id string, now time.Time) (*model.MemoryRecord, error) {
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	r, err := e.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	temporal.UpdateAccess(r, now)
	if err := e.store.Put(ctx, r); err != nil {
		return nil, err
	}
	e.indices.TouchMeta(r)
	return r, nil
}

// GetContext returns the most-recently-accessed records, up to max, plus a
// short per-type count summary.
func (e *Engine) GetContext(ctx context.Context, tenantID, agentID string, max int) (*Context, error) {
	if err := e.checkInitialized(); err != nil {
		return nil, err
	}
	if max <= 0 {
		max = 10
	}

	listed, err := e.store.List(ctx, model.ListFilter{
		TenantID: tenantID,
		AgentID:  agentID,
		Limit:    max,
		SortBy:   model.SortByAccessed,
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[model.MemoryType]int)
	records := make([]*model.MemoryRecord, 0, len(listed))
	for _, r := range listed {
		records = append(records, r.WithoutEmbedding())
		counts[r.Type]++
	}

	parts := make([]string, 0, len(counts))
	for _, t := range model.Types {
		if n, ok := counts[t]; ok {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	summary := fmt.Sprintf("%d memories (%s)", len(records), strings.Join(parts, ", "))

	return &Context{Memories: records, Summary: summary}, nil
}

// Forget deletes a record from the persistent store and every index. It
// returns false if id was unknown.
func (e *Engine) Forget(ctx context.Context, tenantID, id string) (bool, error) {
	if err := e.checkInitialized(); err != nil {
		return false, err
	}
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	r, err := e.store.Get(ctx, tenantID, id)
	if err != nil {
		if _, ok := err.(*model.NotFoundError); ok {
			return false, nil
		}
		return false, err
	}

	if err := e.store.Delete(ctx, tenantID, id); err != nil {
		return false, err
	}
	e.indices.Remove(id, r.Content, r.Tags, r.Type)
	if e.vector != nil {
		if err := e.vector.Delete(ctx, []string{id}); err != nil {
			log.Warn("vector store delete failed during forget", "id", id, "err", err)
		}
	}
	return true, nil
}

// Sweep evaluates should_forget for every indexed record, store-wide, and
// forgets the ones that qualify (ttl passed, or adjusted confidence below
// the temporal engine's forget threshold). It forgets at most batchSize
// records per call (batchSize <= 0 means no cap) and stops once that many
// have been forgotten; it returns the number forgotten.
func (e *Engine) Sweep(ctx context.Context, batchSize int) (int, error) {
	if err := e.checkInitialized(); err != nil {
		return 0, err
	}
	if e.temporal == nil {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = len(e.indices.Semantic.AllIDs())
	}

	now := time.Now()
	forgotten := 0
	for _, id := range e.indices.Semantic.AllIDs() {
		if err := ctx.Err(); err != nil {
			return forgotten, &model.CancelledError{Op: "sweep"}
		}
		meta, ok := e.indices.Semantic.Meta(id)
		if !ok {
			continue
		}
		r, err := e.store.Get(ctx, meta.TenantID, id)
		if err != nil {
			continue
		}
		if !e.temporal.ShouldForget(r, now) {
			continue
		}
		if ok, err := e.Forget(ctx, meta.TenantID, id); err == nil && ok {
			forgotten++
		}
		if forgotten >= batchSize {
			break
		}
	}
	return forgotten, nil
}

// GetStats reports totals, per-type counts, index sizes, average importance,
// and activity in the last 24 hours, scoped to tenantID.
func (e *Engine) GetStats(ctx context.Context, tenantID string) (*Stats, error) {
	if err := e.checkInitialized(); err != nil {
		return nil, err
	}
	candidates := e.indices.CandidateSet(tenantID, "", "", nil)

	byType := make(map[model.MemoryType]int)
	var importanceSum float64
	var recent int
	cutoff := time.Now().Add(-24 * time.Hour)
	for id := range candidates {
		meta, ok := e.indices.Semantic.Meta(id)
		if !ok {
			continue
		}
		byType[meta.Type]++
		importanceSum += meta.Importance
		if meta.LastAccessedAt.After(cutoff) {
			recent++
		}
	}

	avg := 0.0
	if len(candidates) > 0 {
		avg = importanceSum / float64(len(candidates))
	}

	idxStats := e.indices.Stats()
	return &Stats{
		Totals: len(candidates),
		ByType: byType,
		IndexSizes: IndexSizes{
			Semantic: idxStats.TotalIndexed,
			Keyword:  idxStats.DistinctTerms,
			Tag:      idxStats.DistinctTags,
		},
		AvgImportance:     avg,
		RecentActivity24h: recent,
	}, nil
}
