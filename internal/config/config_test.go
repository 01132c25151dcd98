package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/memorai/memoraid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, 384, cfg.Dimension)
	assert.Equal(t, 10, cfg.DefaultRecallLimit)
	assert.InDelta(t, 0.1, cfg.DefaultRecallThreshold, 1e-9)
	assert.InDelta(t, 0.1, cfg.ArchiveThreshold, 1e-9)
	assert.InDelta(t, 0.05, cfg.ForgetThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.KeywordWeight, 1e-9)
}

func TestResolvedDataPath_Explicit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataPath = "/var/lib/memoraid"
	assert.Equal(t, "/var/lib/memoraid", cfg.ResolvedDataPath())
}

func TestResolvedDataPath_EnvOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	t.Setenv("MEMORAID_DATA_PATH", "/tmp/override-memory")
	assert.Equal(t, "/tmp/override-memory", cfg.ResolvedDataPath())
}

func TestResolvedDataPath_PlatformDefault(t *testing.T) {
	cfg := config.DefaultConfig()
	t.Setenv("MEMORAID_DATA_PATH", "")
	base, err := os.UserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "Memorai", "data", "memory"), cfg.ResolvedDataPath())
}

func TestSelectedProvider_Precedence(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, config.ProviderLocal, cfg.SelectedProvider())

	cfg.HostedPrimary.APIKey = "sk-test"
	assert.Equal(t, config.ProviderHostedPrimary, cfg.SelectedProvider())

	cfg.HostedAlternate.APIKey = "az-test"
	cfg.HostedAlternate.DeploymentID = "embed-deployment"
	assert.Equal(t, config.ProviderHostedAlternate, cfg.SelectedProvider())
}

func TestSelectedProvider_ExplicitOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HostedPrimary.APIKey = "sk-test"
	cfg.EmbedderProvider = config.ProviderLocal
	assert.Equal(t, config.ProviderLocal, cfg.SelectedProvider())
}

func TestContextRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	ctx := config.WithContext(t.Context(), &cfg)
	got := config.FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, cfg.Dimension, got.Dimension)
}
