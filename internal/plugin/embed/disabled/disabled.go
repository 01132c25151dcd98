// Package disabled provides an embedder that always fails, used to exercise
// the engine's EmbeddingUnavailable degradation path deliberately (tests,
// or an operator choosing to run keyword-only).
package disabled

import (
	"context"
	"fmt"

	"github.com/memorai/memoraid/internal/config"
	"github.com/memorai/memoraid/internal/registry/embed"
)

func init() {
	embed.Register(embed.Plugin{
		Name: string(config.ProviderDisabled),
		Loader: func(_ context.Context) (embed.Embedder, error) {
			return &Embedder{}, nil
		},
	})
}

type Embedder struct{}

func (e *Embedder) EmbedTexts(_ context.Context, _ []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding is disabled")
}

func (e *Embedder) ModelName() string { return "disabled" }
func (e *Embedder) Dimension() int    { return 0 }

var _ embed.Embedder = (*Embedder)(nil)
