// Package config holds the memory engine's explicit configuration struct.
// Environment and flag inspection happens once at construction in
// internal/cmd/serve; nothing in this package reads the environment lazily.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ListenerConfig holds the network/TLS settings for a single listener.
type ListenerConfig struct {
	Port              int
	EnablePlainText   bool
	EnableTLS         bool
	TLSCertFile       string
	TLSKeyFile        string
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context, or nil if absent.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// EmbedderProvider selects which embedder implementation backs the engine.
type EmbedderProvider string

const (
	ProviderHostedAlternate EmbedderProvider = "hosted-alternate"
	ProviderHostedPrimary   EmbedderProvider = "hosted-primary"
	ProviderLocal           EmbedderProvider = "local"
	ProviderDisabled        EmbedderProvider = "disabled"
)

// EmbedderConfig carries the enumerated embedder configuration options from
// spec §6: provider, model identifier, API key, endpoint URL, deployment
// identifier, API version, and an optional output dimension override.
type EmbedderConfig struct {
	ModelName    string
	APIKey       string
	BaseURL      string
	DeploymentID string
	APIVersion   string
	// Dimension overrides the engine dimension for this provider's output
	// when non-zero (e.g. a hosted model that emits a different width).
	Dimension int
}

// configuredHosted reports whether enough fields are set to attempt using
// this hosted provider: an API key is required, since both hosted loaders
// refuse to start without one (model name and base url have defaults).
// hosted-alternate additionally requires a deployment id, checked by
// SelectedProvider.
func (e EmbedderConfig) configuredHosted() bool {
	return strings.TrimSpace(e.APIKey) != ""
}

// Config holds all configuration for the memory engine.
type Config struct {
	// DataPath is the directory for the persistent store. Empty selects the
	// platform default (see ResolvedDataPath).
	DataPath string

	// Dimension is the embedding dimension D; it must match the embedder and
	// vector store.
	Dimension int

	DefaultRecallLimit     int
	DefaultRecallThreshold float64

	ArchiveThreshold float64
	ForgetThreshold  float64

	SemanticWeight float64
	KeywordWeight  float64

	// MaintenanceInterval controls how often the forget sweep runs.
	// Zero disables the background sweep.
	MaintenanceInterval time.Duration
	MaintenanceBatch     int

	// RememberQueueSize bounds the backpressure queue in front of remember.
	// Zero means unbounded (no shedding).
	RememberQueueSize int

	// EmbedderProvider selects which of the embedder configs below is
	// active. Leave empty to use the fixed precedence
	// hosted-alternate -> hosted-primary -> local.
	EmbedderProvider EmbedderProvider

	HostedAlternate EmbedderConfig
	HostedPrimary   EmbedderConfig
	Local           EmbedderConfig

	Listener           ListenerConfig
	ManagementListener ListenerConfig

	CORSEnabled bool
	CORSOrigins string
}

// DefaultConfig returns a Config with the defaults named in spec §6.
func DefaultConfig() Config {
	return Config{
		Dimension:              384,
		DefaultRecallLimit:     10,
		DefaultRecallThreshold: 0.1,
		ArchiveThreshold:       0.1,
		ForgetThreshold:        0.05,
		SemanticWeight:         0.7,
		KeywordWeight:          0.3,
		MaintenanceInterval:    10 * time.Minute,
		MaintenanceBatch:       500,
		RememberQueueSize:      0,
		Local: EmbedderConfig{
			ModelName: "local-hash-384",
		},
		HostedPrimary: EmbedderConfig{
			ModelName: "text-embedding-3-small",
			BaseURL:   "https://api.openai.com/v1",
		},
		Listener: ListenerConfig{
			Port:              8080,
			EnablePlainText:   true,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ManagementListener: ListenerConfig{
			EnablePlainText: true,
		},
	}
}

// ResolvedDataPath returns the configured data path or the platform default
// (per-user application-data directory, subpath Memorai/data/memory),
// honoring the MEMORAID_DATA_PATH environment override.
func (c *Config) ResolvedDataPath() string {
	if c != nil {
		if dir := strings.TrimSpace(c.DataPath); dir != "" {
			return dir
		}
	}
	if override := strings.TrimSpace(os.Getenv("MEMORAID_DATA_PATH")); override != "" {
		return override
	}
	base, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(base) == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "Memorai", "data", "memory")
}

// SelectedProvider returns the embedder provider to use, honoring an
// explicit choice or falling back to the fixed precedence from spec §6:
// hosted-alternate -> hosted-primary -> local.
func (c Config) SelectedProvider() EmbedderProvider {
	if c.EmbedderProvider != "" {
		return c.EmbedderProvider
	}
	switch {
	case c.HostedAlternate.configuredHosted() && strings.TrimSpace(c.HostedAlternate.DeploymentID) != "":
		return ProviderHostedAlternate
	case c.HostedPrimary.configuredHosted():
		return ProviderHostedPrimary
	default:
		return ProviderLocal
	}
}
