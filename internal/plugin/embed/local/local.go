// Package local provides a deterministic, dependency-free embedder used for
// tests and offline operation: a hash-projection bag-of-tokens vector,
// L2-normalized, with a configurable dimension.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/memorai/memoraid/internal/config"
	registryembed "github.com/memorai/memoraid/internal/registry/embed"
)

const defaultModelName = "local-hash"

func init() {
	registryembed.Register(registryembed.Plugin{
		Name:   string(config.ProviderLocal),
		Loader: load,
	})
}

func load(ctx context.Context) (registryembed.Embedder, error) {
	cfg := config.FromContext(ctx)
	dim := 384
	model := defaultModelName
	if cfg != nil {
		if cfg.Dimension > 0 {
			dim = cfg.Dimension
		}
		if cfg.Local.Dimension > 0 {
			dim = cfg.Local.Dimension
		}
		if cfg.Local.ModelName != "" {
			model = cfg.Local.ModelName
		}
	}
	return &Embedder{model: model, dimension: dim}, nil
}

// Embedder is a hash-projection embedder: every token votes for one of
// Dimension() buckets via FNV-1a, and the resulting vector is L2-normalized.
type Embedder struct {
	model     string
	dimension int
}

// New constructs a local embedder directly, bypassing the registry — used
// by tests and by callers that have no config.Context to thread through.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &Embedder{model: defaultModelName, dimension: dimension}
}

func (e *Embedder) ModelName() string {
	return e.model
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

func (e *Embedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = e.embedOne(text)
	}
	return results, nil
}

func (e *Embedder) embedOne(text string) []float32 {
	vector := make([]float32, e.dimension)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		i := int(h.Sum64() % uint64(e.dimension))
		vector[i]++
	}
	norm := float32(0)
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return vector
	}
	inv := 1 / float32(math.Sqrt(float64(norm)))
	for i := range vector {
		vector[i] *= inv
	}
	return vector
}

func tokenize(text string) []string {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return nil
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})
}

var _ registryembed.Embedder = (*Embedder)(nil)
