// Package azureopenai implements the hosted-alternate embedder provider:
// an Azure-OpenAI-shaped REST endpoint addressed by deployment identifier
// and API version rather than by model name, reusing the hosted-primary
// client pattern.
package azureopenai

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
		Name:   string(config.ProviderHostedAlternate),
		Loader: load,
	})
}

func load(ctx context.Context) (registryembed.Embedder, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("hosted-alternate embedder: no configuration")
	}
	ec := cfg.HostedAlternate
	if strings.TrimSpace(ec.APIKey) == "" {
		return nil, fmt.Errorf("hosted-alternate embedder: api key is required")
	}
	if strings.TrimSpace(ec.DeploymentID) == "" {
		return nil, fmt.Errorf("hosted-alternate embedder: deployment identifier is required")
	}
	if strings.TrimSpace(ec.BaseURL) == "" {
		return nil, fmt.Errorf("hosted-alternate embedder: endpoint url is required")
	}
	apiVersion := ec.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-02-01"
	}
	dim := ec.Dimension
	if dim <= 0 {
		dim = cfg.Dimension
	}
	return &Embedder{
		apiKey:       ec.APIKey,
		deploymentID: ec.DeploymentID,
		baseURL:      strings.TrimRight(ec.BaseURL, "/"),
		apiVersion:   apiVersion,
		dimensions:   ec.Dimension,
		defaultDim:   dim,
		client:       http.DefaultClient,
	}, nil
}

// Embedder calls an Azure-OpenAI-shaped embeddings endpoint:
// {baseURL}/openai/deployments/{deploymentID}/embeddings?api-version={apiVersion},
// authenticated with an api-key header instead of a bearer token.
type Embedder struct {
	apiKey       string
	deploymentID string
	baseURL      string
	apiVersion   string
	dimensions   int
	defaultDim   int
	client       *http.Client
}

func (e *Embedder) ModelName() string {
	return e.deploymentID
}

func (e *Embedder) Dimension() int {
	return e.defaultDim
}

type embeddingRequest struct {
	Input      []string `json:"input"`
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
		Dimensions: ptrIfPositive(e.dimensions),
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s", e.baseURL, e.deploymentID, e.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hosted-alternate embed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hosted-alternate embed: read response: %w", err)
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("hosted-alternate embed: parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("hosted-alternate embed error: %s", result.Error.Message)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("hosted-alternate embed: expected %d embeddings, got %d", len(texts), len(result.Data))
	}

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
