// Package openai implements the hosted-primary embedder provider: an
// OpenAI-compatible REST embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/memorai/memoraid/internal/config"
	registryembed "github.com/memorai/memoraid/internal/registry/embed"
)

func init() {
	registryembed.Register(registryembed.Plugin{
		Name:   string(config.ProviderHostedPrimary),
		Loader: load,
	})
}

func load(ctx context.Context) (registryembed.Embedder, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || strings.TrimSpace(cfg.HostedPrimary.APIKey) == "" {
		return nil, fmt.Errorf("hosted-primary embedder: api key is required")
	}
	ec := cfg.HostedPrimary
	model := ec.ModelName
	if model == "" {
		model = "text-embedding-3-small"
	}
	baseURL := strings.TrimRight(ec.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	dim := ec.Dimension
	if dim <= 0 {
		dim = cfg.Dimension
	}
	return &Embedder{
		apiKey:     ec.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: ec.Dimension,
		defaultDim: dim,
		client:     http.DefaultClient,
	}, nil
}

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	defaultDim int
	client     *http.Client
}

func (e *Embedder) ModelName() string {
	return e.model
}

func (e *Embedder) Dimension() int {
	return e.defaultDim
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions *int     `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{
		Input:      texts,
		Model:      e.model,
		Dimensions: ptrIfPositive(e.dimensions),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hosted-primary embed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hosted-primary embed: read response: %w", err)
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("hosted-primary embed: parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("hosted-primary embed error: %s", result.Error.Message)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("hosted-primary embed: expected %d embeddings, got %d", len(texts), len(result.Data))
	}

	// The API may return results in any order; reorder by index.
	embeddings := make([][]float32, len(texts))
	for _, d := range result.Data {
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

func ptrIfPositive(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

var _ registryembed.Embedder = (*Embedder)(nil)
