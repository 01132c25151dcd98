package serve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memorai/memoraid/internal/config"
)

func TestCorsMiddlewareIfEnabled_DisabledReturnsNil(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CORSEnabled = false
	assert.Nil(t, corsMiddlewareIfEnabled(&cfg))
}

func TestCorsMiddlewareIfEnabled_EnabledReturnsOneMiddleware(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CORSEnabled = true
	cfg.CORSOrigins = "https://example.com"
	mw := corsMiddlewareIfEnabled(&cfg)
	assert.Len(t, mw, 1)
}

func TestCorsMiddlewareIfEnabled_NilConfigReturnsNil(t *testing.T) {
	assert.Nil(t, corsMiddlewareIfEnabled(nil))
}
