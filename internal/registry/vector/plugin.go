// Package vector defines the abstract vector-store contract consumed by the
// memory engine, and the plugin registry used to select an implementation.
package vector

import (
	"context"
	"fmt"

	"github.com/memorai/memoraid/internal/model"
)

// Point is a single (id, vector, payload) record passed to Upsert.
type Point struct {
	ID        string
	Embedding []float32
	// Payload carries at minimum tenant_id, type, created_at in a
	// filterable representation, per the vector-store contract.
	Payload map[string]any
}

// Query restricts and bounds a Search call.
type Query struct {
	TenantID  string
	AgentID   string
	Type      model.MemoryType
	Limit     int
	Threshold float64
}

// Result is a single Search hit.
type Result struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Store abstracts a nearest-neighbor index keyed by id, per spec §4.2.
type Store interface {
	// Initialize is idempotent: it creates or verifies the underlying
	// collection for the given dimension, using cosine distance.
	Initialize(ctx context.Context, dimension int) error
	// Upsert stores or updates a batch of points. An empty batch is a no-op.
	Upsert(ctx context.Context, points []Point) error
	// Search returns results sorted by descending cosine similarity, up to
	// query.Limit, omitting results below query.Threshold.
	Search(ctx context.Context, embedding []float32, query Query) ([]Result, error)
	// Delete is best effort: missing ids are not an error.
	Delete(ctx context.Context, ids []string) error
	// Count returns the number of points for the given tenant.
	Count(ctx context.Context, tenantID string) (int, error)
	// HealthCheck reports whether the store is reachable and operational.
	HealthCheck(ctx context.Context) bool
	// Close releases any resources held by the store.
	Close() error
}

// Loader creates a Store from context-carried config.
type Loader func(ctx context.Context) (Store, error)

// Plugin represents a vector store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a vector store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered vector store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named vector store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown vector store %q; valid: %v", name, Names())
}
